package models

import (
	"time"

	"adoor/estate/internal/utils"
)

// Role defines the permission tier of a user account.
type Role string

const (
	RoleGeneral Role = "GENERAL"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// Elevated reports whether the role may act on records it does not own
// (responding to inquiries, reassigning them, listing all inquiries).
func (r Role) Elevated() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleGeneral, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// ContactInfo is a point-in-time snapshot of a party's contact details.
// It is embedded into appointments and inquiries when they are created and
// is never synced back to the user profile afterwards.
type ContactInfo struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// User represents a user in the system: a client, an agent, or staff.
type User struct {
	Base         `bson:",inline"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string    `bson:"password" json:"-"` // Store hash, not plaintext
	Role         Role      `bson:"role" json:"role"`
	ProfilePic   string    `bson:"profile_pic,omitempty" json:"profile_pic,omitempty"`
	Suspended    bool      `bson:"suspended" json:"suspended"`
	Activated    bool      `bson:"activated" json:"activated"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
	Deleted      bool      `bson:"deleted" json:"-"` // Soft delete flag
}

// Contact returns the user's current details as an embeddable snapshot.
func (u *User) Contact() ContactInfo {
	return ContactInfo{
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
	}
}

// UserSummary is the subset of user fields expanded into appointment and
// inquiry responses for display.
type UserSummary struct {
	ID         utils.SixID `bson:"_id" json:"id"`
	Name       string      `bson:"name" json:"name"`
	Email      string      `bson:"email" json:"email"`
	Phone      string      `bson:"phone,omitempty" json:"phone,omitempty"`
	ProfilePic string      `bson:"profile_pic,omitempty" json:"profile_pic,omitempty"`
}
