package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/models"
)

// EventGetter loads an event, implemented by the events repository.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// SnapshotSource computes an event's fill state, implemented by the
// registration ledger.
type SnapshotSource interface {
	Snapshot(ctx context.Context, event *models.Event, occurrenceTS *int64) (models.CapacitySnapshot, error)
}

// CapacityFeed pushes fresh capacity snapshots to an event's room whenever
// the registration ledger reports a change.
type CapacityFeed struct {
	hub    *Hub
	events EventGetter
	source SnapshotSource
	logger *zap.Logger
}

// NewCapacityFeed creates the bridge between the ledger and the hub. The
// snapshot source is attached afterwards with SetSource since the ledger is
// constructed with the feed as its observer.
func NewCapacityFeed(hub *Hub, events EventGetter, source SnapshotSource, logger *zap.Logger) *CapacityFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityFeed{hub: hub, events: events, source: source, logger: logger}
}

// SetSource attaches the snapshot source.
func (f *CapacityFeed) SetSource(source SnapshotSource) {
	f.source = source
}

// CapacityChanged recomputes the event's snapshot and broadcasts it. Runs
// asynchronously so the registration request never waits on viewers.
func (f *CapacityFeed) CapacityChanged(eventID uuid.UUID) {
	if f.source == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		event, err := f.events.GetByID(ctx, eventID)
		if err != nil || event == nil {
			f.logger.Warn("capacity feed event load failed",
				zap.Error(err), zap.String("event_id", eventID.String()))
			return
		}
		snap, err := f.source.Snapshot(ctx, event, nil)
		if err != nil {
			f.logger.Warn("capacity feed snapshot failed",
				zap.Error(err), zap.String("event_id", eventID.String()))
			return
		}
		f.hub.BroadcastAndPublish(eventID, "capacity", snap)
	}()
}
