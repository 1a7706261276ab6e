package stats

import (
	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/models"
	"github.com/blogstack/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// Handler exposes the stats endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Register mounts the stats routes behind admin auth.
func (h *Handler) Register(r *gin.RouterGroup, authn *middleware.Authenticator) {
	grp := r.Group("/stats")
	grp.Use(middleware.RequireAuth(authn), middleware.RequireRole(string(models.RoleAdmin)))
	grp.GET("/posts", h.postStats)
}

func (h *Handler) postStats(c *gin.Context) {
	stats, err := h.svc.PostStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
