package registrations

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/events"
	"github.com/centre-jeunesse/backend/internal/members"
	"github.com/centre-jeunesse/backend/internal/middleware"
	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/pkg/response"
)

// BadgeAwarder grants participation badges after a successful registration.
// Optional.
type BadgeAwarder interface {
	CheckAndAward(ctx context.Context, memberID uuid.UUID) []models.Badge
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	ledger  *Ledger
	repo    *Repository
	events  *events.Repository
	members *members.Repository
	badges  BadgeAwarder
	logger  *zap.Logger
}

// NewHandler creates a registrations handler. badges may be nil.
func NewHandler(ledger *Ledger, repo *Repository, eventsRepo *events.Repository, membersRepo *members.Repository, badges BadgeAwarder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ledger: ledger, repo: repo, events: eventsRepo, members: membersRepo, badges: badges, logger: logger}
}

// RegisterRequest is the body for POST /events/:id/register. Scope defaults
// to all occurrences; "custom" requires the chosen occurrence timestamps.
type RegisterRequest struct {
	Scope      string  `json:"scope"` // "all" (default) or "custom"
	Timestamps []int64 `json:"timestamps"`
	Note       string  `json:"note"`
}

// Register handles POST /events/:id/register.
func (h *Handler) Register(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	if !event.Published {
		response.NotFound(c, "event not found")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	scope := models.AllScope()
	if models.ScopeKind(req.Scope) == models.ScopeCustom {
		scope = models.CustomScope(req.Timestamps)
	}

	memberID := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	member, err := h.members.GetByID(c.Request.Context(), memberID)
	if err != nil {
		response.Unauthorized(c, "member not found")
		return
	}

	res, err := h.ledger.Register(c.Request.Context(), event, member, scope, req.Note)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}
	if h.badges != nil {
		h.badges.CheckAndAward(c.Request.Context(), member.ID)
	}
	response.Created(c, res)
}

// CancelSelf handles DELETE /events/:id/register.
func (h *Handler) CancelSelf(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	memberID := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	if err := h.ledger.Cancel(c.Request.Context(), event, memberID); err != nil {
		h.writeLedgerError(c, err)
		return
	}
	response.NoContent(c)
}

// CancelMember handles DELETE /events/:id/registrations/:memberId (staff only).
func (h *Handler) CancelMember(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	if err := h.ledger.Cancel(c.Request.Context(), event, memberID); err != nil {
		h.writeLedgerError(c, err)
		return
	}
	response.NoContent(c)
}

// Validate handles POST /events/:id/registrations/:memberId/validate
// (staff only). Confirms a pending registration, or waitlists it when the
// event filled up in the meantime.
func (h *Handler) Validate(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	reg, err := h.ledger.Validate(c.Request.Context(), event, memberID)
	if err != nil {
		h.writeLedgerError(c, err)
		return
	}
	response.OK(c, reg)
}

// ListByEvent handles GET /events/:id/registrations (staff only).
func (h *Handler) ListByEvent(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	list, err := h.repo.ListActiveByEvent(c.Request.Context(), event.ID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ListMine handles GET /me/registrations.
func (h *Handler) ListMine(c *gin.Context) {
	memberID := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	list, err := h.repo.ListByMember(c.Request.Context(), memberID)
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// Capacity handles GET /events/:id/capacity. ?occurrence= narrows the
// snapshot to a single occurrence timestamp for per-occurrence events.
func (h *Handler) Capacity(c *gin.Context) {
	event, ok := h.loadEvent(c)
	if !ok {
		return
	}
	var occurrenceTS *int64
	if v := c.Query("occurrence"); v != "" {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid occurrence timestamp")
			return
		}
		occurrenceTS = &ts
	}
	snap, err := h.ledger.Snapshot(c.Request.Context(), event, occurrenceTS)
	if err != nil {
		response.Internal(c, "failed to compute capacity")
		return
	}
	response.OK(c, snap)
}

func (h *Handler) loadEvent(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	event, err := h.events.GetByID(c.Request.Context(), id)
	if err != nil || event == nil {
		response.NotFound(c, "event not found")
		return nil, false
	}
	return event, true
}

func (h *Handler) writeLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidScope):
		response.BadRequest(c, "selected dates are not part of this event's schedule")
	case errors.Is(err, ErrDeadlinePassed):
		response.BadRequest(c, "the registration deadline has passed")
	case errors.Is(err, ErrEventFull):
		response.Conflict(c, "this event and its waitlist are full")
	case errors.Is(err, ErrNotRegistered):
		response.NotFound(c, "no active registration for this event")
	default:
		h.logger.Error("registration operation failed", zap.Error(err))
		response.Internal(c, "registration operation failed")
	}
}
