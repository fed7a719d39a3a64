// Package registrations reconciles member registrations against an event's
// occurrences: capacity accounting, waitlist promotion and the registration
// state machine live here. Persistence and notification delivery are
// collaborators behind interfaces.
package registrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/internal/schedule"
)

var (
	// ErrInvalidScope means the requested occurrence scope is empty when the
	// event requires picking dates, or references timestamps the schedule
	// does not currently generate.
	ErrInvalidScope = errors.New("invalid occurrence scope")
	// ErrEventFull means capacity is exhausted and no waitlist slot is left.
	ErrEventFull = errors.New("event is full")
	// ErrDeadlinePassed means the registration deadline is over.
	ErrDeadlinePassed = errors.New("registration deadline passed")
	// ErrNotRegistered means the member has no active registration to act on.
	ErrNotRegistered = errors.New("no active registration")
	// ErrConflict is returned by a Store when a concurrent write won the
	// race; the ledger retries the whole check-then-act once on fresh data.
	ErrConflict = errors.New("concurrent registration conflict")
)

// Store is the persistence contract the ledger runs against. WithEventLock
// must serialize the callback per event so capacity check-then-act never
// observes a stale count (the pgx implementation uses a transaction-scoped
// advisory lock).
type Store interface {
	GetActiveByEventAndMember(ctx context.Context, eventID, memberID uuid.UUID) (*models.Registration, error)
	Insert(ctx context.Context, reg *models.Registration) error
	Update(ctx context.Context, reg *models.Registration) error
	ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	WithEventLock(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context) error) error
}

// Notifier records a notification for later delivery. Dispatch failures are
// the notifier's problem; the ledger never fails a registration over them.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification, recipientIDs []uuid.UUID)
}

// StaffDirectory resolves the staff members who receive admin-side
// notifications (new pending registrations, capacity alerts).
type StaffDirectory interface {
	StaffIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CapacityObserver is told when an event's fill state changed, so live
// views can refresh. Optional.
type CapacityObserver interface {
	CapacityChanged(eventID uuid.UUID)
}

// Result is the outcome of a registration request.
type Result struct {
	Registration    *models.Registration      `json:"registration"`
	Status          models.RegistrationStatus `json:"status"`
	PaymentRequired bool                      `json:"payment_required"`
}

// Ledger implements registration and capacity bookkeeping for events.
// notifier, staff and observer are optional collaborators wired at
// construction; a nil value disables that side effect.
type Ledger struct {
	store    Store
	notifier Notifier
	staff    StaffDirectory
	observer CapacityObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewLedger creates a registration ledger.
func NewLedger(store Store, notifier Notifier, staff StaffDirectory, observer CapacityObserver, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:    store,
		notifier: notifier,
		staff:    staff,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// occurrenceTimestamps expands the event's schedule with the admin window
// (no bounds) and returns the set of valid occurrence identifiers.
func (l *Ledger) occurrenceTimestamps(event *models.Event) map[int64]bool {
	model, err := schedule.Decode(event.Schedule)
	if err != nil {
		return nil
	}
	occs := schedule.Generate(model, schedule.Window{}, l.now())
	set := make(map[int64]bool, len(occs))
	for _, o := range occs {
		set[o.Timestamp] = true
	}
	return set
}

// Register places or updates the member's registration for the event.
// Re-registering is an update in place: the existing row keeps its
// created_at and gets the new scope and note. Status is decided from the
// capacity state observed under the event lock.
func (l *Ledger) Register(ctx context.Context, event *models.Event, member *models.Member, scope models.OccurrenceScope, note string) (*Result, error) {
	if event.RegistrationDeadline != nil && l.now().After(*event.RegistrationDeadline) {
		return nil, ErrDeadlinePassed
	}
	if err := l.validateScope(event, scope); err != nil {
		return nil, err
	}

	var result Result
	var thresholdCrossed bool
	attempt := func() error {
		return l.store.WithEventLock(ctx, event.ID, func(ctx context.Context) error {
			regs, err := l.store.ListActiveByEvent(ctx, event.ID)
			if err != nil {
				return fmt.Errorf("list registrations: %w", err)
			}

			existing, err := l.store.GetActiveByEventAndMember(ctx, event.ID, member.ID)
			if err != nil {
				return fmt.Errorf("get registration: %w", err)
			}

			confirmedBefore := countStatus(regs, scope, models.StatusConfirmed) + countStatus(regs, scope, models.StatusPending)
			confirmed := confirmedBefore
			waitlisted := countStatus(regs, scope, models.StatusWaitlisted)
			if existing != nil {
				// The member's own row never counts against their request.
				if existing.Status == models.StatusWaitlisted {
					if existing.Scope.Overlaps(scope) {
						waitlisted--
					}
				} else if existing.Scope.Overlaps(scope) {
					confirmed--
				}
			}

			status := models.StatusConfirmed
			if event.RequiresValidation {
				status = models.StatusPending
			}
			if event.CapacityTotal > 0 && confirmed >= event.CapacityTotal {
				if event.CapacityWaitlist > 0 && waitlisted < event.CapacityWaitlist {
					status = models.StatusWaitlisted
				} else {
					return ErrEventFull
				}
			}

			if existing != nil {
				existing.Scope = scope
				existing.Note = note
				existing.Status = status
				if err := l.store.Update(ctx, existing); err != nil {
					return err
				}
				result.Registration = existing
			} else {
				reg := &models.Registration{
					EventID:  event.ID,
					MemberID: member.ID,
					Status:   status,
					Scope:    scope,
					Note:     note,
				}
				if err := l.store.Insert(ctx, reg); err != nil {
					return err
				}
				result.Registration = reg
			}
			result.Status = status
			result.PaymentRequired = event.PaymentRequired()

			if status != models.StatusWaitlisted {
				confirmed++
			}
			thresholdCrossed = event.CapacityNotifyThreshold > 0 &&
				confirmedBefore < event.CapacityNotifyThreshold &&
				confirmed >= event.CapacityNotifyThreshold
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, ErrConflict) {
		// Lost a capacity race: re-run the whole check-then-act once against
		// fresh data before surfacing anything to the caller.
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	l.emitRegistered(ctx, event, member, &result, thresholdCrossed)
	if l.observer != nil {
		l.observer.CapacityChanged(event.ID)
	}
	return &result, nil
}

// Cancel marks the member's active registration as cancelled and promotes
// the earliest waitlisted registration that frees up, FIFO by the original
// registration time.
func (l *Ledger) Cancel(ctx context.Context, event *models.Event, memberID uuid.UUID) error {
	var promoted *models.Registration

	err := l.store.WithEventLock(ctx, event.ID, func(ctx context.Context) error {
		reg, err := l.store.GetActiveByEventAndMember(ctx, event.ID, memberID)
		if err != nil {
			return fmt.Errorf("get registration: %w", err)
		}
		if reg == nil {
			return ErrNotRegistered
		}

		freedScope := reg.Scope
		heldSlot := reg.Status == models.StatusConfirmed || reg.Status == models.StatusPending
		reg.Status = models.StatusCancelled
		if err := l.store.Update(ctx, reg); err != nil {
			return err
		}

		if !heldSlot || event.CapacityTotal == 0 || event.CapacityWaitlist == 0 {
			return nil
		}

		regs, err := l.store.ListActiveByEvent(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		candidate := earliestWaitlisted(regs, freedScope)
		if candidate == nil {
			return nil
		}
		confirmed := countStatus(regs, candidate.Scope, models.StatusConfirmed) +
			countStatus(regs, candidate.Scope, models.StatusPending)
		if confirmed >= event.CapacityTotal {
			return nil
		}

		candidate.Status = models.StatusConfirmed
		if event.RequiresValidation {
			candidate.Status = models.StatusPending
		}
		if err := l.store.Update(ctx, candidate); err != nil {
			return err
		}
		promoted = candidate
		return nil
	})
	if err != nil {
		return err
	}

	if promoted != nil {
		l.emitPromoted(ctx, event, promoted)
	}
	if l.observer != nil {
		l.observer.CapacityChanged(event.ID)
	}
	return nil
}

// Validate confirms a pending registration (staff action). When capacity
// filled up in the meantime the registration moves to the waitlist instead.
func (l *Ledger) Validate(ctx context.Context, event *models.Event, memberID uuid.UUID) (*models.Registration, error) {
	var out *models.Registration
	err := l.store.WithEventLock(ctx, event.ID, func(ctx context.Context) error {
		reg, err := l.store.GetActiveByEventAndMember(ctx, event.ID, memberID)
		if err != nil {
			return fmt.Errorf("get registration: %w", err)
		}
		if reg == nil || reg.Status != models.StatusPending {
			return ErrNotRegistered
		}

		regs, err := l.store.ListActiveByEvent(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		confirmed := countStatus(regs, reg.Scope, models.StatusConfirmed)
		reg.Status = models.StatusConfirmed
		if event.CapacityTotal > 0 && confirmed >= event.CapacityTotal {
			reg.Status = models.StatusWaitlisted
		}
		if err := l.store.Update(ctx, reg); err != nil {
			return err
		}
		out = reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	if l.observer != nil {
		l.observer.CapacityChanged(event.ID)
	}
	return out, nil
}

// Snapshot computes the fill state for the whole event, or for a single
// occurrence when the event tracks capacity per occurrence.
func (l *Ledger) Snapshot(ctx context.Context, event *models.Event, occurrenceTS *int64) (models.CapacitySnapshot, error) {
	regs, err := l.store.ListActiveByEvent(ctx, event.ID)
	if err != nil {
		return models.CapacitySnapshot{}, fmt.Errorf("list registrations: %w", err)
	}
	return l.snapshotOf(event, regs, occurrenceTS), nil
}

// OccurrenceFill returns the capacity snapshot for every given occurrence
// in one pass, for the registration widget payload.
func (l *Ledger) OccurrenceFill(ctx context.Context, event *models.Event, occs []schedule.Occurrence) (map[int64]models.CapacitySnapshot, error) {
	regs, err := l.store.ListActiveByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	out := make(map[int64]models.CapacitySnapshot, len(occs))
	for _, o := range occs {
		ts := o.Timestamp
		out[ts] = l.snapshotOf(event, regs, &ts)
	}
	return out, nil
}

func (l *Ledger) snapshotOf(event *models.Event, regs []models.Registration, occurrenceTS *int64) models.CapacitySnapshot {
	snap := models.CapacitySnapshot{
		CapacityTotal:    event.CapacityTotal,
		CapacityWaitlist: event.CapacityWaitlist,
	}
	perOccurrence := event.OccurrenceSelectionMode == models.SelectionChoose && occurrenceTS != nil
	for _, r := range regs {
		if perOccurrence && !r.Scope.Includes(*occurrenceTS) {
			continue
		}
		switch r.Status {
		case models.StatusConfirmed, models.StatusPending:
			snap.ConfirmedCount++
		case models.StatusWaitlisted:
			snap.WaitlistedCount++
		}
	}
	if snap.CapacityTotal > 0 {
		if avail := snap.CapacityTotal - snap.ConfirmedCount; avail > 0 {
			snap.AvailableCount = avail
		}
	}
	return snap
}

func (l *Ledger) validateScope(event *models.Event, scope models.OccurrenceScope) error {
	switch scope.Kind {
	case models.ScopeAll:
		return nil
	case models.ScopeCustom:
		if len(scope.Timestamps) == 0 {
			return ErrInvalidScope
		}
		valid := l.occurrenceTimestamps(event)
		for _, ts := range scope.Timestamps {
			if !valid[ts] {
				return ErrInvalidScope
			}
		}
		return nil
	default:
		return ErrInvalidScope
	}
}

// countStatus counts active registrations in the given status whose scope
// overlaps the reference scope.
func countStatus(regs []models.Registration, ref models.OccurrenceScope, status models.RegistrationStatus) int {
	n := 0
	for _, r := range regs {
		if r.Status == status && r.Scope.Overlaps(ref) {
			n++
		}
	}
	return n
}

// earliestWaitlisted returns the waitlisted registration with the oldest
// created_at whose scope overlaps the freed one. Promotion is FIFO by the
// original registration time, never by update time.
func earliestWaitlisted(regs []models.Registration, freed models.OccurrenceScope) *models.Registration {
	var best *models.Registration
	for i := range regs {
		r := &regs[i]
		if r.Status != models.StatusWaitlisted || !r.Scope.Overlaps(freed) {
			continue
		}
		if best == nil || r.CreatedAt.Before(best.CreatedAt) {
			best = r
		}
	}
	return best
}

func (l *Ledger) emitRegistered(ctx context.Context, event *models.Event, member *models.Member, res *Result, thresholdCrossed bool) {
	if l.notifier == nil {
		return
	}

	var memberType models.NotificationType
	switch res.Status {
	case models.StatusWaitlisted:
		memberType = models.NotifRegistrationWaitlist
	case models.StatusPending:
		memberType = models.NotifRegistrationPending
	default:
		memberType = models.NotifRegistrationConfirmed
	}
	payload, _ := json.Marshal(map[string]string{"event_id": event.ID.String()})
	l.notifier.Notify(ctx, models.Notification{
		Type:    memberType,
		Title:   event.Title,
		Excerpt: "",
		URL:     "/events/" + event.ID.String(),
		Source:  "registrations",
		Payload: payload,
	}, []uuid.UUID{member.ID})

	if l.staff == nil {
		return
	}
	staffIDs, err := l.staff.StaffIDs(ctx)
	if err != nil {
		l.logger.Warn("staff lookup for notification failed", zap.Error(err))
		return
	}
	if res.Status == models.StatusPending {
		l.notifier.Notify(ctx, models.Notification{
			Type:    models.NotifRegistrationPending,
			Title:   event.Title,
			Excerpt: member.FullName(),
			URL:     "/admin/events/" + event.ID.String() + "/registrations",
			Source:  "registrations",
			Payload: payload,
		}, staffIDs)
	}
	if thresholdCrossed {
		l.notifier.Notify(ctx, models.Notification{
			Type:    models.NotifCapacityThreshold,
			Title:   event.Title,
			URL:     "/admin/events/" + event.ID.String(),
			Source:  "registrations",
			Payload: payload,
		}, staffIDs)
	}
}

func (l *Ledger) emitPromoted(ctx context.Context, event *models.Event, promoted *models.Registration) {
	if l.notifier == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"event_id": event.ID.String()})
	l.notifier.Notify(ctx, models.Notification{
		Type:    models.NotifWaitlistPromoted,
		Title:   event.Title,
		URL:     "/events/" + event.ID.String(),
		Source:  "registrations",
		Payload: payload,
	}, []uuid.UUID{promoted.MemberID})
}
