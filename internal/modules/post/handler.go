package post

import (
	"net/http"

	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/pkg/errs"
	"github.com/blogstack/core/internal/pkg/pagination"
	"github.com/blogstack/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

// Handler exposes the post endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Register mounts the post routes. Reads run with optional auth so authors
// see their own drafts; writes require a login.
func (h *Handler) Register(r *gin.RouterGroup, authn *middleware.Authenticator) {
	grp := r.Group("/posts")

	reads := grp.Group("")
	reads.Use(middleware.OptionalAuth(authn))
	reads.GET("", h.list)
	reads.GET("/:id", h.get)
	reads.GET("/slug/:slug", h.getBySlug)
	reads.GET("/:id/render", h.render)

	writes := grp.Group("")
	writes.Use(middleware.RequireAuth(authn))
	writes.POST("", h.create)
	writes.PUT("/:id", h.update)
	writes.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.Error(c, errs.Validation(err.Error()))
		return
	}

	posts, pag, err := h.svc.List(c.Request.Context(), currentActor(c), pagination.FromContext(c), lq)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, posts, pag)
}

func (h *Handler) get(c *gin.Context) {
	post, err := h.svc.GetByID(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) getBySlug(c *gin.Context) {
	post, err := h.svc.GetBySlug(c.Request.Context(), currentActor(c), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) render(c *gin.Context) {
	html, err := h.svc.Render(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, html)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, errs.Validation(err.Error()))
		return
	}

	post, err := h.svc.Create(c.Request.Context(), currentActor(c), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdatePostDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, errs.Validation(err.Error()))
		return
	}

	post, err := h.svc.Update(c.Request.Context(), currentActor(c), c.Param("id"), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), currentActor(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func currentActor(c *gin.Context) Actor {
	p := middleware.CurrentPrincipal(c)
	if p == nil {
		return Actor{}
	}
	return Actor{UserID: p.UserID, Role: p.Role}
}
