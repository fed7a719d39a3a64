package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationStatus is the lifecycle state of a registration.
// cancelled is terminal: a member who cancels and comes back gets a new row.
type RegistrationStatus string

const (
	StatusPending    RegistrationStatus = "pending"
	StatusConfirmed  RegistrationStatus = "confirmed"
	StatusWaitlisted RegistrationStatus = "waitlisted"
	StatusCancelled  RegistrationStatus = "cancelled"
)

// Active reports whether the status counts toward capacity bookkeeping.
func (s RegistrationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusWaitlisted
}

// ScopeKind is how a registration maps onto the event's occurrences.
type ScopeKind string

const (
	// ScopeAll applies the registration to every occurrence.
	ScopeAll ScopeKind = "all"
	// ScopeCustom applies it to an explicit set of occurrence timestamps.
	ScopeCustom ScopeKind = "custom"
)

// OccurrenceScope is which occurrences a registration covers. Timestamps are
// the epoch-second occurrence identifiers produced by the schedule package.
type OccurrenceScope struct {
	Kind       ScopeKind `json:"kind"`
	Timestamps []int64   `json:"timestamps,omitempty"`
}

// AllScope is the scope covering every occurrence.
func AllScope() OccurrenceScope { return OccurrenceScope{Kind: ScopeAll} }

// CustomScope is a scope covering the given occurrence timestamps.
func CustomScope(timestamps []int64) OccurrenceScope {
	return OccurrenceScope{Kind: ScopeCustom, Timestamps: timestamps}
}

// Includes reports whether the scope covers the given occurrence timestamp.
func (s OccurrenceScope) Includes(ts int64) bool {
	if s.Kind != ScopeCustom {
		return true
	}
	for _, t := range s.Timestamps {
		if t == ts {
			return true
		}
	}
	return false
}

// Overlaps reports whether two scopes share at least one occurrence.
func (s OccurrenceScope) Overlaps(other OccurrenceScope) bool {
	if s.Kind != ScopeCustom || other.Kind != ScopeCustom {
		return true
	}
	for _, t := range s.Timestamps {
		if other.Includes(t) {
			return true
		}
	}
	return false
}

// Registration is a member's registration for an event.
type Registration struct {
	ID        uuid.UUID          `json:"id"`
	EventID   uuid.UUID          `json:"event_id"`
	MemberID  uuid.UUID          `json:"member_id"`
	Status    RegistrationStatus `json:"status"`
	Scope     OccurrenceScope    `json:"scope"`
	Note      string             `json:"note"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// CapacitySnapshot is the fill state of an event or a single occurrence.
type CapacitySnapshot struct {
	CapacityTotal    int `json:"capacity_total"`    // 0 = unlimited
	CapacityWaitlist int `json:"capacity_waitlist"` // 0 = no waitlist
	ConfirmedCount   int `json:"confirmed_count"`
	WaitlistedCount  int `json:"waitlisted_count"`
	AvailableCount   int `json:"available_count"` // meaningless when CapacityTotal == 0
}

// Unlimited reports whether the snapshot tracks no capacity limit.
func (s CapacitySnapshot) Unlimited() bool { return s.CapacityTotal == 0 }

// Full reports whether all confirmed slots are taken.
func (s CapacitySnapshot) Full() bool {
	return s.CapacityTotal > 0 && s.ConfirmedCount >= s.CapacityTotal
}
