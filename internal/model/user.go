package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles. Admin is carried on the record but grants nothing inside projects.
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// User represents an authenticated user in the system.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name" gorm:"size:100;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         string    `json:"role" gorm:"size:20;default:'user'"`
	Bio          string    `json:"bio,omitempty" gorm:"size:500"`
	Avatar       string    `json:"avatar,omitempty" gorm:"size:500"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ProfilePatch carries profile changes. Empty strings leave the field untouched.
type ProfilePatch struct {
	Name   string
	Bio    string
	Avatar string
}

// ApplyTo merges the non-empty fields into u.
func (p ProfilePatch) ApplyTo(u *User) {
	if p.Name != "" {
		u.Name = p.Name
	}
	if p.Bio != "" {
		u.Bio = p.Bio
	}
	if p.Avatar != "" {
		u.Avatar = p.Avatar
	}
}
