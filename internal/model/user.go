package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the authorization level of a user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a registered account. A TwoFactorSecret may be present while
// TwoFactorEnabled is still false: that is the state between enable and confirm.
type User struct {
	ID               uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Email            string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash     string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Name             *string   `json:"name,omitempty" gorm:"size:255"`
	Role             Role      `json:"role" gorm:"size:16;not null;default:'USER';index"`
	TwoFactorSecret  *string   `json:"-" gorm:"size:64"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled" gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TableName pins the table name independent of GORM's naming strategy.
func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID and role defaults before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// HasTwoFactorSecret reports whether 2FA setup has at least been started.
func (u *User) HasTwoFactorSecret() bool {
	return u.TwoFactorSecret != nil && *u.TwoFactorSecret != ""
}

// PublicUser is the profile shape returned by the API.
type PublicUser struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Name             *string   `json:"name,omitempty"`
	Role             Role      `json:"role"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Public strips credentials from the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
