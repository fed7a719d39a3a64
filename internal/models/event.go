package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OccurrenceSelectionMode controls whether members register for the whole
// event or pick a subset of its occurrences.
type OccurrenceSelectionMode string

const (
	// SelectionAll means a registration always covers every occurrence.
	SelectionAll OccurrenceSelectionMode = "all"
	// SelectionChoose lets the member pick specific occurrence timestamps.
	SelectionChoose OccurrenceSelectionMode = "choose"
)

// Event represents an activity of the center (workshop, outing, camp, ...).
// Schedule holds the raw schedule configuration as saved by the admin form;
// it is decoded on demand by the schedule package.
type Event struct {
	ID                      uuid.UUID               `json:"id"`
	Title                   string                  `json:"title"`
	Description             string                  `json:"description"`
	LocationID              *uuid.UUID              `json:"location_id,omitempty"`
	Schedule                json.RawMessage         `json:"schedule,omitempty"`
	CapacityTotal           int                     `json:"capacity_total"`            // 0 = unlimited
	CapacityWaitlist        int                     `json:"capacity_waitlist"`         // 0 = no waitlist
	CapacityNotifyThreshold int                     `json:"capacity_notify_threshold"` // 0 = disabled
	OccurrenceSelectionMode OccurrenceSelectionMode `json:"occurrence_selection_mode"`
	RequiresValidation      bool                    `json:"requires_validation"`
	PriceCents              int                     `json:"price_cents"`
	FreeParticipation       bool                    `json:"free_participation"`
	RegistrationDeadline    *time.Time              `json:"registration_deadline,omitempty"`
	Published               bool                    `json:"published"`
	CreatedBy               uuid.UUID               `json:"created_by"`
	CreatedAt               time.Time               `json:"created_at"`
	UpdatedAt               time.Time               `json:"updated_at"`
}

// PaymentRequired reports whether registering to this event implies a payment.
func (e *Event) PaymentRequired() bool {
	return e.PriceCents > 0 && !e.FreeParticipation
}

// Location is a venue where events take place.
type Location struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Room      string    `json:"room"`
	Capacity  int       `json:"capacity"` // informational room capacity, 0 = unknown
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
