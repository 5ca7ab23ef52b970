package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a board member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Username     string    `gorm:"size:64;not null" bson:"username" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" bson:"email" json:"email"`
	PasswordHash string    `gorm:"size:255" bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is the part of a User that may leave the server.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public returns the public view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// BeforeCreate hook ensures an id and timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Prepare(time.Now())
	return nil
}

// Prepare assigns an id and creation timestamps when missing.
func (u *User) Prepare(now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
}
