package app

import (
	"context"
	"time"

	pkgcron "github.com/mx-space/comments/internal/pkg/cron"
	"go.uber.org/zap"
)

const (
	JobPurgeSubscriptions = "purge_comment_subscriptions"
	JobPurgeOptInTokens   = "purge_optin_tokens"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, svc *Services, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        JobPurgeSubscriptions,
		Description: "Delete comment subscriptions not confirmed within a day",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			_, err := svc.Workflow.PurgeExpired(ctx)
			return err
		},
	})

	sched.Register(pkgcron.Job{
		Name:        JobPurgeOptInTokens,
		Description: "Delete expired opt-in tokens",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := svc.Tokens.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				cronLogger.Info("purged expired opt-in tokens", zap.Int64("count", n))
			}
			return nil
		},
	})
}
