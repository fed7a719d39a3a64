package badges

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/models"
)

// ActivityCounter reports how many active registrations a member holds,
// implemented by the registrations repository.
type ActivityCounter interface {
	CountActiveByMember(ctx context.Context, memberID uuid.UUID) (int, error)
}

// Notifier delivers badge award notifications, implemented by the
// notifications dispatcher.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification, recipientIDs []uuid.UUID)
}

// Awarder grants threshold badges when a member's activity count reaches
// a badge's threshold.
type Awarder struct {
	repo     *Repository
	activity ActivityCounter
	notifier Notifier
	logger   *zap.Logger
}

// NewAwarder creates a badge awarder. notifier may be nil.
func NewAwarder(repo *Repository, activity ActivityCounter, notifier Notifier, logger *zap.Logger) *Awarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Awarder{repo: repo, activity: activity, notifier: notifier, logger: logger}
}

// CheckAndAward grants every threshold badge the member now qualifies for
// and returns the newly awarded ones. Errors are logged and swallowed: badge
// bookkeeping never fails a registration.
func (a *Awarder) CheckAndAward(ctx context.Context, memberID uuid.UUID) []models.Badge {
	count, err := a.activity.CountActiveByMember(ctx, memberID)
	if err != nil {
		a.logger.Warn("activity count failed", zap.Error(err), zap.String("member_id", memberID.String()))
		return nil
	}
	catalog, err := a.repo.List(ctx)
	if err != nil {
		a.logger.Warn("badge catalog load failed", zap.Error(err))
		return nil
	}

	var awarded []models.Badge
	for _, b := range catalog {
		if b.Threshold <= 0 || count < b.Threshold {
			continue
		}
		fresh, err := a.repo.Award(ctx, memberID, b.ID)
		if err != nil {
			a.logger.Warn("badge award failed", zap.Error(err), zap.String("badge", b.Slug))
			continue
		}
		if !fresh {
			continue
		}
		awarded = append(awarded, b)
		if a.notifier != nil {
			a.notifier.Notify(ctx, models.Notification{
				Type:    models.NotifBadgeAwarded,
				Title:   b.Name,
				Excerpt: b.Description,
				URL:     "/me/badges",
				Source:  "badges",
			}, []uuid.UUID{memberID})
		}
	}
	return awarded
}
