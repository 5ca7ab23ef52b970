package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post represents a board entry. Author is a display-name snapshot, not a reference to a User.
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Title     string    `gorm:"size:255;not null" bson:"title" json:"title"`
	Content   string    `gorm:"type:text;not null" bson:"content" json:"content"`
	Author    string    `gorm:"size:64;not null;index" bson:"author" json:"author"`
	Views     int64     `gorm:"not null;default:0" bson:"views" json:"views"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" bson:"comments" json:"comments"`
	CreatedAt time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// BeforeCreate hook ensures an id and timestamps are set even when not provided.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	p.Prepare(time.Now())
	return nil
}

// Prepare assigns an id, timestamps and an empty comment list when missing.
func (p *Post) Prepare(now time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// Clone returns a copy that shares no comment storage with p.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Comments = make([]Comment, len(p.Comments))
	copy(cp.Comments, p.Comments)
	return &cp
}
