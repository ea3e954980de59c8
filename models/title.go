package models

// Title is a catalogued work. Deleting its category keeps the title and
// nulls the reference; deleting the title removes its reviews and comments.
type Title struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Year        int       `gorm:"not null" json:"year"`
	Description string    `gorm:"size:200" json:"description"`
	CategoryID  *uint     `gorm:"index" json:"-"`
	Category    *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"category,omitempty"`
	Genres      []Genre   `gorm:"many2many:title_genres;constraint:OnDelete:CASCADE" json:"genres,omitempty"`
	Reviews     []Review  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comments    []Comment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
