package models

import "time"

// Comment is a reply to a review. TitleID is denormalized from the review so
// comments disappear with the title as well as with the review.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TitleID   uint      `gorm:"index;not null" json:"title_id"`
	ReviewID  uint      `gorm:"index;not null" json:"review_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Text      string    `gorm:"size:300;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}
