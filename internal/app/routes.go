package app

import (
	"net/http"
	"time"

	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/models"
	"github.com/blogstack/core/internal/modules/auth"
	"github.com/blogstack/core/internal/modules/gateway"
	"github.com/blogstack/core/internal/modules/health"
	"github.com/blogstack/core/internal/modules/post"
	"github.com/blogstack/core/internal/modules/stats"
	"github.com/blogstack/core/internal/modules/user"
	"github.com/blogstack/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(sessionStore *auth.GormSessionStore) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(a.rc.Raw()))
	r.Use(middleware.Idempotence(a.rc.Raw()))

	// Realtime gateway sits at the root, outside the versioned API.
	root := r.Group("")
	gateway.RegisterRoutes(root, a.hub)

	api := r.Group(apiPrefix)

	started := time.Now()
	api.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "blogstack-core",
			"version": Version,
		})
	})
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uptime": time.Since(started).Seconds()})
	})

	health.NewHandler(a.db, a.rc, a.cfg.Env, Version).Register(api)

	auth.NewHandler(a.authSvc, auth.CookieConfig{
		Name:   a.cfg.JWT.RefreshCookieName,
		Path:   a.cfg.JWT.RefreshCookiePath,
		Secure: !a.cfg.IsDev(),
	}).Register(api, a.authn)

	userSvc := user.NewService(a.db, sessionStore, a.logger.Named("user"))
	user.NewHandler(userSvc).Register(api, a.authn)

	postSvc := post.NewService(a.db, a.bus, a.logger.Named("post"))
	post.NewHandler(postSvc).Register(api, a.authn)

	stats.NewHandler(stats.NewService(a.db)).Register(api, a.authn)

	a.registerCronRoutes(api)
}

// registerCronRoutes exposes admin visibility into the scheduler.
func (a *App) registerCronRoutes(api *gin.RouterGroup) {
	grp := api.Group("/cron")
	grp.Use(middleware.RequireAuth(a.authn), middleware.RequireRole(string(models.RoleAdmin)))

	grp.GET("", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	grp.POST("/:name/run", func(c *gin.Context) {
		if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"message": "Job triggered"})
	})
}
