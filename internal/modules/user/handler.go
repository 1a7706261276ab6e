package user

import (
	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/models"
	"github.com/blogstack/core/internal/modules/auth"
	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/pagination"
	"github.com/blogstack/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// Handler exposes the user endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Register mounts the user routes.
func (h *Handler) Register(r *gin.RouterGroup, authn *middleware.Authenticator) {
	grp := r.Group("/users")
	grp.POST("", middleware.OptionalAuth(authn), h.create)

	protected := grp.Group("")
	protected.Use(middleware.RequireAuth(authn))
	protected.GET("/me", h.me)
	protected.PUT("/me/password", h.changePassword)
	protected.GET("/:id", h.get)
	protected.PUT("/:id", h.update)

	admin := grp.Group("")
	admin.Use(middleware.RequireAuth(authn), middleware.RequireRole(string(models.RoleAdmin)))
	admin.GET("", h.list)
	admin.DELETE("/:id", h.remove)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, errs.Validation(err.Error()))
		return
	}

	// Only admins may assign a role at creation time.
	p := middleware.CurrentPrincipal(c)
	if p == nil || p.Role != string(models.RoleAdmin) {
		dto.Role = ""
	}

	u, err := h.svc.Create(c.Request.Context(), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, auth.NewSafeUser(u))
}

func (h *Handler) me(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	u, err := h.svc.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if u == nil {
		response.Error(c, errs.NotFound("User not found"))
		return
	}
	response.OK(c, auth.NewSafeUser(u))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	if !canAccess(c, id) {
		response.Error(c, errs.Forbidden("Insufficient permissions"))
		return
	}

	u, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if u == nil {
		response.Error(c, errs.NotFound("User not found"))
		return
	}
	response.OK(c, auth.NewSafeUser(u))
}

func (h *Handler) list(c *gin.Context) {
	users, pag, err := h.svc.List(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]auth.SafeUser, 0, len(users))
	for i := range users {
		out = append(out, auth.NewSafeUser(&users[i]))
	}
	response.Paged(c, out, pag)
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	if !canAccess(c, id) {
		response.Error(c, errs.Forbidden("Insufficient permissions"))
		return
	}

	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, errs.Validation(err.Error()))
		return
	}

	// Role and activation changes are admin-only.
	p := middleware.CurrentPrincipal(c)
	if p.Role != string(models.RoleAdmin) {
		dto.Role = nil
		dto.IsActive = nil
	}

	u, err := h.svc.Update(c.Request.Context(), id, &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, auth.NewSafeUser(u))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, errs.Validation(err.Error()))
		return
	}

	p := middleware.CurrentPrincipal(c)
	if err := h.svc.ChangePassword(c.Request.Context(), p.UserID, dto.CurrentPassword, dto.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Password changed, please log in again"})
}

// canAccess allows admins and the resource owner.
func canAccess(c *gin.Context, userID string) bool {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return false
	}
	return p.Role == string(models.RoleAdmin) || p.UserID == userID
}
