package health

import (
	"runtime"
	"time"

	pkgredis "github.com/blogstack/core/internal/pkg/redis"
	"github.com/blogstack/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler exposes liveness and dependency health endpoints.
type Handler struct {
	db      *gorm.DB
	rc      *pkgredis.Client
	env     string
	version string
	started time.Time
}

func NewHandler(db *gorm.DB, rc *pkgredis.Client, env, version string) *Handler {
	return &Handler{db: db, rc: rc, env: env, version: version, started: time.Now()}
}

// Register mounts the health routes. Both are public; load balancers probe
// them unauthenticated.
func (h *Handler) Register(r *gin.RouterGroup) {
	grp := r.Group("/health")
	grp.GET("", h.simple)
	grp.GET("/detailed", h.detailed)
}

func (h *Handler) simple(c *gin.Context) {
	response.OK(c, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(h.started).Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) detailed(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := true
	checks := gin.H{}

	dbCheck := checkResult{Status: "connected"}
	if sqlDB, err := h.db.DB(); err != nil {
		dbCheck = checkResult{Status: "disconnected", Error: err.Error()}
		healthy = false
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbCheck = checkResult{Status: "disconnected", Error: err.Error()}
		healthy = false
	}
	checks["database"] = dbCheck

	if h.rc != nil {
		redisCheck := checkResult{Status: "connected"}
		if err := h.rc.Ping(ctx); err != nil {
			redisCheck = checkResult{Status: "disconnected", Error: err.Error()}
			healthy = false
		}
		checks["redis"] = redisCheck
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	checks["memory"] = gin.H{
		"alloc_mb":      mem.Alloc / 1024 / 1024,
		"sys_mb":        mem.Sys / 1024 / 1024,
		"num_goroutine": runtime.NumGoroutine(),
	}

	status := "healthy"
	code := 200
	if !healthy {
		status = "unhealthy"
		code = 503
	}

	c.JSON(code, gin.H{
		"status":      status,
		"uptime":      time.Since(h.started).Seconds(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.env,
		"version":     h.version,
		"checks":      checks,
	})
}
