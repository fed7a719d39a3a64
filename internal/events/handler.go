package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/locale"
	"github.com/centre-jeunesse/backend/internal/middleware"
	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/internal/schedule"
	"github.com/centre-jeunesse/backend/pkg/response"
)

// CapacityReader exposes per-occurrence fill state, implemented by the
// registration ledger.
type CapacityReader interface {
	OccurrenceFill(ctx context.Context, event *models.Event, occs []schedule.Occurrence) (map[int64]models.CapacitySnapshot, error)
}

// RegistrationLister lists an event's active registrations, implemented by
// the registrations repository.
type RegistrationLister interface {
	ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo     *Repository
	capacity CapacityReader
	regs     RegistrationLister
	loc      *locale.Locale
	logger   *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, capacity CapacityReader, regs RegistrationLister, loc *locale.Locale, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, capacity: capacity, regs: regs, loc: loc, logger: logger}
}

// SaveRequest is the body for POST /events and PUT /events/:id. The
// schedule field carries the admin form's full schedule configuration and
// replaces the stored one on every save.
type SaveRequest struct {
	Title                   string          `json:"title" binding:"required"`
	Description             string          `json:"description"`
	LocationID              *string         `json:"location_id"`
	Schedule                json.RawMessage `json:"schedule"`
	CapacityTotal           int             `json:"capacity_total"`
	CapacityWaitlist        int             `json:"capacity_waitlist"`
	CapacityNotifyThreshold int             `json:"capacity_notify_threshold"`
	OccurrenceSelectionMode string          `json:"occurrence_selection_mode"`
	RequiresValidation      bool            `json:"requires_validation"`
	PriceCents              int             `json:"price_cents"`
	FreeParticipation       bool            `json:"free_participation"`
	RegistrationDeadline    *time.Time      `json:"registration_deadline"`
	Published               bool            `json:"published"`
}

func (req *SaveRequest) apply(e *models.Event) error {
	e.Title = req.Title
	e.Description = req.Description
	e.LocationID = nil
	if req.LocationID != nil && *req.LocationID != "" {
		id, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return err
		}
		e.LocationID = &id
	}
	e.Schedule = req.Schedule
	e.CapacityTotal = req.CapacityTotal
	e.CapacityWaitlist = req.CapacityWaitlist
	e.CapacityNotifyThreshold = req.CapacityNotifyThreshold
	e.OccurrenceSelectionMode = models.SelectionAll
	if models.OccurrenceSelectionMode(req.OccurrenceSelectionMode) == models.SelectionChoose {
		e.OccurrenceSelectionMode = models.SelectionChoose
	}
	e.RequiresValidation = req.RequiresValidation
	e.PriceCents = req.PriceCents
	e.FreeParticipation = req.FreeParticipation
	e.RegistrationDeadline = req.RegistrationDeadline
	e.Published = req.Published
	return nil
}

// Create handles POST /events (staff only).
func (h *Handler) Create(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	e := &models.Event{CreatedBy: c.MustGet(middleware.ContextMemberID).(uuid.UUID)}
	if err := req.apply(e); err != nil {
		response.BadRequest(c, "invalid location_id")
		return
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events. Members see published events only; staff see
// everything with ?all=1.
func (h *Handler) List(c *gin.Context) {
	publishedOnly := true
	if c.Query("all") == "1" {
		role, _ := c.Get(middleware.ContextMemberRole)
		if role == string(models.RoleAdmin) || role == string(models.RoleAnimateur) {
			publishedOnly = false
		}
	}
	list, err := h.repo.List(c.Request.Context(), publishedOnly)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}
	response.OK(c, e)
}

// Update handles PUT /events/:id (staff only). The response reports how
// many registered occurrence timestamps the new schedule no longer
// generates, so staff can follow up with the affected members.
func (h *Handler) Update(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := req.apply(e); err != nil {
		response.BadRequest(c, "invalid location_id")
		return
	}
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		h.logger.Error("update event failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		response.Internal(c, "failed to update event")
		return
	}

	orphaned := h.countOrphanedScopes(c.Request.Context(), e)
	response.OK(c, gin.H{"event": e, "orphaned_occurrence_refs": orphaned})
}

// countOrphanedScopes counts custom-scope timestamps in active
// registrations that the current schedule no longer generates. Those
// registrations stay valid for display but reference dates that went away.
func (h *Handler) countOrphanedScopes(ctx context.Context, e *models.Event) int {
	model, err := schedule.Decode(e.Schedule)
	if err != nil {
		return 0
	}
	occs := schedule.Generate(model, schedule.Window{}, time.Now())
	valid := make(map[int64]bool, len(occs))
	for _, o := range occs {
		valid[o.Timestamp] = true
	}

	regs, err := h.regs.ListActiveByEvent(ctx, e.ID)
	if err != nil {
		h.logger.Warn("orphan scan failed", zap.Error(err), zap.String("event_id", e.ID.String()))
		return 0
	}
	orphaned := 0
	for _, r := range regs {
		if r.Scope.Kind != models.ScopeCustom {
			continue
		}
		for _, ts := range r.Scope.Timestamps {
			if !valid[ts] {
				orphaned++
			}
		}
	}
	return orphaned
}

// Delete handles DELETE /events/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// occurrenceView is one occurrence as exposed to the front end, with its
// fill state when the event tracks per-occurrence capacity.
type occurrenceView struct {
	schedule.Occurrence
	Capacity *models.CapacitySnapshot `json:"capacity,omitempty"`
}

// Occurrences handles GET /events/:id/occurrences (admin listing). Query
// parameters: from/until (RFC 3339) and max.
func (h *Handler) Occurrences(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}
	model, err := schedule.Decode(e.Schedule)
	if err != nil {
		response.BadRequest(c, "corrupted schedule data")
		return
	}

	w := schedule.Window{}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			w.From = t
		}
	}
	if v := c.Query("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			w.Until = t
		}
	}
	if v := c.Query("max"); v != "" {
		w.MaxCount, _ = strconv.Atoi(v)
	}

	occs := schedule.Generate(model, w, time.Now())
	for i := range occs {
		occs[i].Label = h.loc.FormatDateTime(occs[i].Start)
	}
	response.OK(c, occs)
}

// Schedule handles GET /events/:id/schedule: the payload the registration
// widget renders. It bundles the upcoming occurrences with their fill
// state, the schedule summary and the template candidates for the
// requested rendering variant.
func (h *Handler) Schedule(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}
	model, err := schedule.Decode(e.Schedule)
	if err != nil {
		response.BadRequest(c, "corrupted schedule data")
		return
	}

	now := time.Now()
	max := 6
	if v := c.Query("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			max = n
		}
	}
	occs := schedule.Generate(model, schedule.Upcoming(now, max), now)
	for i := range occs {
		occs[i].Label = h.loc.FormatDateTime(occs[i].Start)
	}
	summary := schedule.Summarize(model, occs, h.loc, now)
	if summary.Text == "" {
		summary.Text = h.loc.DatesToAnnounce
	}

	views := make([]occurrenceView, 0, len(occs))
	fill, err := h.capacity.OccurrenceFill(c.Request.Context(), e, occs)
	if err != nil {
		h.logger.Warn("occurrence fill failed", zap.Error(err), zap.String("event_id", e.ID.String()))
	}
	for _, o := range occs {
		v := occurrenceView{Occurrence: o}
		if snap, ok := fill[o.Timestamp]; ok {
			snapCopy := snap
			v.Capacity = &snapCopy
		}
		views = append(views, v)
	}

	response.OK(c, gin.H{
		"summary":               summary.Text,
		"next_occurrence_label": summary.NextOccurrence,
		"schedule_mode":         model.Mode,
		"occurrence_selection":  e.OccurrenceSelectionMode,
		"occurrences":           views,
		"templates":             schedule.TemplateCandidates(model.Mode, c.Query("variant"), nil),
	})
}

func (h *Handler) loadEvent(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || e == nil {
		response.NotFound(c, "event not found")
		return nil, false
	}
	return e, true
}
