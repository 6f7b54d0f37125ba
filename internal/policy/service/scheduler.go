package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher reloads the snapshot on a cron schedule.
type Refresher struct {
	cron     *cron.Cron
	provider *Provider
	logger   *slog.Logger
	timeout  time.Duration
}

func NewRefresher(provider *Provider, logger *slog.Logger) *Refresher {
	return &Refresher{
		cron:     cron.New(),
		provider: provider,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Start schedules the refresh job. spec accepts standard five-field expressions and
// descriptors such as "@every 5m".
func (r *Refresher) Start(ctx context.Context, spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		if _, err := r.provider.Refresh(runCtx); err != nil {
			r.logger.ErrorContext(runCtx, "scheduled policy refresh failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.InfoContext(ctx, "policy refresher started", "schedule", spec)
	return nil
}

// Stop waits for a running refresh to finish or ctx to expire.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	r.logger.InfoContext(ctx, "policy refresher stopped")
}
