package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/middleware"
	"github.com/centre-jeunesse/backend/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListMine handles GET /me/notifications. ?limit= caps the page size.
func (h *Handler) ListMine(c *gin.Context) {
	memberID := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.repo.ListForMember(c.Request.Context(), memberID, limit)
	if err != nil {
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, list)
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	memberID := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	if err := h.repo.MarkRead(c.Request.Context(), id, memberID); err != nil {
		response.Internal(c, "failed to mark notification read")
		return
	}
	response.NoContent(c)
}
