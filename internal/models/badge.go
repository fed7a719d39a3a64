package models

import (
	"time"

	"github.com/google/uuid"
)

// Badge is a gamification badge from the catalog. Threshold is the number of
// active registrations a member needs before the badge is awarded; 0 means
// the badge is only awarded manually by staff.
type Badge struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Threshold   int       `json:"threshold"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemberBadge records a badge awarded to a member.
type MemberBadge struct {
	MemberID  uuid.UUID `json:"member_id"`
	BadgeID   uuid.UUID `json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`
}
