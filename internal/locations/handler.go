package locations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/pkg/response"
)

// Handler handles location HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a locations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// SaveRequest is the body for POST /locations and PUT /locations/:id.
type SaveRequest struct {
	Name     string `json:"name" binding:"required"`
	Address  string `json:"address"`
	Room     string `json:"room"`
	Capacity int    `json:"capacity"`
}

// Create handles POST /locations (staff only).
func (h *Handler) Create(c *gin.Context) {
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	l := &models.Location{Name: req.Name, Address: req.Address, Room: req.Room, Capacity: req.Capacity}
	if err := h.repo.Create(c.Request.Context(), l); err != nil {
		h.logger.Error("create location failed", zap.Error(err))
		response.Internal(c, "failed to create location")
		return
	}
	response.Created(c, l)
}

// List handles GET /locations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list locations")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /locations/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid location id")
		return
	}
	l, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil || l == nil {
		response.NotFound(c, "location not found")
		return
	}
	response.OK(c, l)
}

// Update handles PUT /locations/:id (staff only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid location id")
		return
	}
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	l := &models.Location{ID: id, Name: req.Name, Address: req.Address, Room: req.Room, Capacity: req.Capacity}
	if err := h.repo.Update(c.Request.Context(), l); err != nil {
		response.Internal(c, "failed to update location")
		return
	}
	response.OK(c, l)
}

// Delete handles DELETE /locations/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid location id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete location")
		return
	}
	response.NoContent(c)
}
