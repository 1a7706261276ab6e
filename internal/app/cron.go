package app

import (
	"context"
	"time"

	"github.com/blogstack/core/internal/models"
	pkgcron "github.com/blogstack/core/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() {
	log := a.logger.Named("cron")

	a.sched.Register(pkgcron.Job{
		Name:        "cleanup_expired_sessions",
		Description: "Revoke sessions past their refresh expiry",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			swept, err := a.authSvc.CleanupExpiredSessions(ctx)
			if err != nil {
				log.Warn("session cleanup failed", zap.Error(err))
				return err
			}
			if swept > 0 {
				log.Info("session cleanup done", zap.Int64("swept", swept))
			}
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "database_stats",
		Description: "Log table row counts for capacity tracking",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			var users, sessions, posts int64
			if err := a.db.WithContext(ctx).Model(&models.UserModel{}).Count(&users).Error; err != nil {
				return err
			}
			if err := a.db.WithContext(ctx).Model(&models.UserSession{}).Count(&sessions).Error; err != nil {
				return err
			}
			if err := a.db.WithContext(ctx).Model(&models.PostModel{}).Count(&posts).Error; err != nil {
				return err
			}
			log.Info("database stats",
				zap.Int64("users", users),
				zap.Int64("sessions", sessions),
				zap.Int64("posts", posts),
			)
			return nil
		},
	})

	a.sched.Register(pkgcron.Job{
		Name:        "heartbeat",
		Description: "Log liveness and gateway online count",
		Interval:    5 * time.Minute,
		Fn: func(ctx context.Context) error {
			log.Info("heartbeat", zap.Int("online", a.hub.Online()))
			return nil
		},
	})
}
