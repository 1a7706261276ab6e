package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/blogstack/core/internal/config"
	"github.com/blogstack/core/internal/database"
	"github.com/blogstack/core/internal/middleware"
	"github.com/blogstack/core/internal/modules/auth"
	"github.com/blogstack/core/internal/modules/gateway"
	pkgcron "github.com/blogstack/core/internal/pkg/cron"
	"github.com/blogstack/core/internal/pkg/events"
	"github.com/blogstack/core/internal/pkg/password"
	pkgredis "github.com/blogstack/core/internal/pkg/redis"
	"github.com/blogstack/core/internal/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Version is the application version reported by the info endpoints.
const Version = "1.0.0"

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *gorm.DB
	rc      *pkgredis.Client
	bus     *events.Bus
	hub     *gateway.Hub
	authn   *middleware.Authenticator
	authSvc *auth.Service
	logger  *zap.Logger
	sched   *pkgcron.Scheduler
	cancel  context.CancelFunc
}

// New initializes the application: config → DB → Redis → auth core → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	password.SetCost(cfg.Security.BcryptCost)

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	codec, err := token.NewCodec(token.Config{
		Secret:         cfg.JWT.Secret,
		Issuer:         cfg.JWT.Issuer,
		Audience:       cfg.JWT.Audience,
		AccessTTL:      cfg.AccessTTL(),
		RefreshHashKey: cfg.JWT.RefreshHashKey,
	})
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	sessionStore := auth.NewGormSessionStore(db)
	userStore := auth.NewGormUserStore(db)
	authn := middleware.NewAuthenticator(codec, sessionStore)
	authSvc := auth.NewService(auth.ServiceConfig{
		Users:            userStore,
		Sessions:         sessionStore,
		Codec:            codec,
		Logger:           logger.Named("auth"),
		MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
		LockWindow:       cfg.LockWindow(),
		RefreshTTL:       cfg.RefreshTTL(),
	})

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.WithRequestID())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	bus := events.NewBus()
	hub := gateway.NewHub(rc, bus, authn, logger.Named("gateway"))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	sched := pkgcron.New()

	app := &App{
		cfg:     cfg,
		router:  router,
		db:      db,
		rc:      rc,
		bus:     bus,
		hub:     hub,
		authn:   authn,
		authSvc: authSvc,
		logger:  logger,
		sched:   sched,
		cancel:  cancel,
	}
	app.registerRoutes(sessionStore)
	app.registerCronJobs()
	go sched.Start(ctx)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines and connections.
func (a *App) Shutdown() {
	a.cancel()
	a.bus.Close()
	if err := a.rc.Close(); err != nil {
		a.logger.Warn("redis close failed", zap.Error(err))
	}
}
