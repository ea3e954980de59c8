package models

// Category groups titles by kind of work (film, book, music, ...).
// Looked up by slug everywhere except its numeric primary key.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:200;not null" json:"name"`
	Slug string `gorm:"size:64;uniqueIndex;not null" json:"slug"`
}
