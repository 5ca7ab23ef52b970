package models

import "time"

// Comment is a reply embedded in a Post. The relational store keeps comments in a
// child table; ID and PostID exist only for that mapping.
type Comment struct {
	ID        uint      `gorm:"primaryKey" bson:"-" json:"-"`
	PostID    string    `gorm:"size:36;index;not null" bson:"-" json:"-"`
	Author    string    `gorm:"size:64;not null" bson:"author" json:"author"`
	Content   string    `gorm:"type:text;not null" bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
