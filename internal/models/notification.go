package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationType identifies the business event a notification reports.
type NotificationType string

const (
	NotifRegistrationConfirmed NotificationType = "registration_confirmed"
	NotifRegistrationPending   NotificationType = "registration_pending"
	NotifRegistrationWaitlist  NotificationType = "registration_waitlisted"
	NotifWaitlistPromoted      NotificationType = "waitlist_promoted"
	NotifCapacityThreshold     NotificationType = "capacity_threshold"
	NotifBadgeAwarded          NotificationType = "badge_awarded"
)

// Notification is a recorded notification, fanned out to recipients and
// delivered by the worker over the configured channels.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Excerpt   string           `json:"excerpt"`
	URL       string           `json:"url"`
	Source    string           `json:"source"` // emitting subsystem, e.g. "registrations"
	Payload   json.RawMessage  `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationRecipient links a notification to a member, with per-channel
// delivery state tracked by the worker.
type NotificationRecipient struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	MemberID       uuid.UUID  `json:"member_id"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	EmailedAt      *time.Time `json:"emailed_at,omitempty"`
}
