package members

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/centre-jeunesse/backend/internal/middleware"
	"github.com/centre-jeunesse/backend/internal/models"
	"github.com/centre-jeunesse/backend/pkg/response"
)

// Handler handles member directory HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a members handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /members (staff only). ?role= filters by role.
func (h *Handler) List(c *gin.Context) {
	role := models.Role(c.Query("role"))
	switch role {
	case "", models.RoleAdmin, models.RoleAnimateur, models.RoleMember:
	default:
		response.BadRequest(c, "invalid role filter")
		return
	}
	list, err := h.repo.List(c.Request.Context(), role)
	if err != nil {
		response.Internal(c, "failed to list members")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /members/:id (staff only).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "member not found")
		return
	}
	response.OK(c, m.ToPublic())
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	id := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "member not found")
		return
	}
	response.OK(c, m)
}

// UpdateProfileRequest is the body for PUT /me.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Birthdate string `json:"birthdate"` // optional, YYYY-MM-DD
}

// UpdateMe handles PUT /me.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	id := c.MustGet(middleware.ContextMemberID).(uuid.UUID)
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "member not found")
		return
	}

	m.FirstName = req.FirstName
	m.LastName = req.LastName
	m.Phone = req.Phone
	m.Birthdate = nil
	if req.Birthdate != "" {
		t, err := time.Parse("2006-01-02", req.Birthdate)
		if err != nil {
			response.BadRequest(c, "invalid birthdate, expected YYYY-MM-DD")
			return
		}
		m.Birthdate = &t
	}

	if err := h.repo.UpdateProfile(c.Request.Context(), m); err != nil {
		h.logger.Error("update profile failed", zap.Error(err), zap.String("member_id", id.String()))
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, m)
}

// UpdateRoleRequest is the body for PUT /members/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// UpdateRole handles PUT /members/:id/role (admin only).
func (h *Handler) UpdateRole(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.Role(req.Role)
	switch role {
	case models.RoleAdmin, models.RoleAnimateur, models.RoleMember:
	default:
		response.BadRequest(c, "invalid role")
		return
	}
	if err := h.repo.UpdateRole(c.Request.Context(), id, role); err != nil {
		response.Internal(c, "failed to update role")
		return
	}
	response.OK(c, gin.H{"id": id, "role": role})
}
