package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a member's role in the center.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAnimateur Role = "animateur"
	RoleMember    Role = "member"
)

// Member represents a registered member of the youth center.
type Member struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Password  string     `json:"-"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
	Role      Role       `json:"role"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MemberPublic is Member without sensitive fields for API responses.
type MemberPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts Member to MemberPublic.
func (m *Member) ToPublic() MemberPublic {
	return MemberPublic{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
	}
}

// FullName returns "First Last" for display and notifications.
func (m *Member) FullName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
