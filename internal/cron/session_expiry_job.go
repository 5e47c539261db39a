package cron

import (
	"context"
	"fmt"

	"github.com/jmoris/stpark-backend/pkg/logger"
)

// staleSessionCloser is the slice of the session service the sweep needs.
type staleSessionCloser interface {
	ExpireStale(ctx context.Context) (int, error)
}

// SessionExpiryJobParams configure the stale session sweep.
type SessionExpiryJobParams struct {
	Logger   *logger.Logger
	Sessions staleSessionCloser
}

// NewSessionExpiryJob builds the cron job that force-closes sessions left
// active beyond the configured maximum duration.
func NewSessionExpiryJob(params SessionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session service required")
	}
	return &sessionExpiryJob{
		logg:     params.Logger,
		sessions: params.Sessions,
	}, nil
}

type sessionExpiryJob struct {
	logg     *logger.Logger
	sessions staleSessionCloser
}

func (j *sessionExpiryJob) Name() string { return "session-expiry" }

func (j *sessionExpiryJob) Run(ctx context.Context) error {
	swept, err := j.sessions.ExpireStale(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": swept})
	if err != nil {
		// partial sweeps still report what they managed to close
		j.logg.Error(logCtx, "stale session sweep finished with errors", err)
		return fmt.Errorf("session expiry: %w", err)
	}
	j.logg.Info(logCtx, "stale session sweep complete")
	return nil
}
