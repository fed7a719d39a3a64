package badges

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/middleware"
	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/pkg/response"
)

// Handler handles badge HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a badges handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /badges.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list badges")
		return
	}
	response.OK(c, list)
}

// SaveRequest is the body for PUT /badges (admin only).
type SaveRequest struct {
	Slug        string `json:"slug" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Threshold   int    `json:"threshold"`
}

// Upsert handles PUT /badges (admin only).
func (h *Handler) Upsert(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	b := &models.Badge{Slug: req.Slug, Name: req.Name, Description: req.Description, Threshold: req.Threshold}
	if err := h.repo.Upsert(c.Request.Context(), b); err != nil {
		h.logger.Error("upsert badge failed", zap.Error(err), zap.String("slug", req.Slug))
		response.Internal(c, "failed to save badge")
		return
	}
	response.OK(c, b)
}

// Delete handles DELETE /badges/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid badge id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete badge")
		return
	}
	response.NoContent(c)
}

// ListMine handles GET /me/badges.
func (h *Handler) ListMine(c *gin.Context) {
	memberID := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	list, err := h.repo.ListForMember(c.Request.Context(), memberID)
	if err != nil {
		response.Internal(c, "failed to list badges")
		return
	}
	response.OK(c, list)
}
