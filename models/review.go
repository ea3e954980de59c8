package models

import "time"

// Review is a scored write-up of a title. One review per (author, title),
// enforced by a composite unique index so concurrent creates collide at the
// database rather than racing an application check.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TitleID   uint      `gorm:"not null;uniqueIndex:idx_reviews_author_title" json:"title_id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_reviews_author_title" json:"author_id"`
	Text      string    `gorm:"size:500;not null" json:"text"`
	Score     int       `gorm:"not null" json:"score"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Comments  []Comment `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"-"`
}
