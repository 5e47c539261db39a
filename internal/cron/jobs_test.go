package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoris/stpark-backend/pkg/logger"
)

type fakeSessionCloser struct {
	swept int
	err   error
	calls int
}

func (f *fakeSessionCloser) ExpireStale(context.Context) (int, error) {
	f.calls++
	return f.swept, f.err
}

func TestSessionExpiryJobRunsSweep(t *testing.T) {
	closer := &fakeSessionCloser{swept: 3}
	job, err := NewSessionExpiryJob(SessionExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Sessions: closer,
	})
	if err != nil {
		t.Fatalf("NewSessionExpiryJob: %v", err)
	}
	if job.Name() != "session-expiry" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if closer.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", closer.calls)
	}
}

func TestSessionExpiryJobPropagatesError(t *testing.T) {
	closer := &fakeSessionCloser{swept: 1, err: errors.New("boom")}
	job, err := NewSessionExpiryJob(SessionExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Sessions: closer,
	})
	if err != nil {
		t.Fatalf("NewSessionExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionJobDeletesPublishedRows(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{deleted: 42}
	job := newOutboxRetentionJob(t, repo, 72*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectedCutoff := now.Add(-72 * time.Hour)
	if !repo.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestOutboxRetentionJobDefaultsRetention(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 0)
	if job.retention != defaultOutboxRetention {
		t.Fatalf("expected default retention, got %s", job.retention)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, time.Hour)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, retention time.Duration) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		Retention:  retention,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("unexpected job type %T", jobIface)
	}
	return job
}
