package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

// ProgressBroadcaster fans progress events out to every subscribed notifier.
type ProgressBroadcaster struct {
	mu    sync.RWMutex
	sinks []repository.ProgressNotifier
}

// NewProgressBroadcaster creates a broadcaster with the given initial sinks.
// Nil sinks are ignored.
func NewProgressBroadcaster(sinks ...repository.ProgressNotifier) *ProgressBroadcaster {
	b := &ProgressBroadcaster{}
	for _, s := range sinks {
		b.Subscribe(s)
	}
	return b
}

// Subscribe adds a sink.
func (b *ProgressBroadcaster) Subscribe(sink repository.ProgressNotifier) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

func (b *ProgressBroadcaster) Notify(ctx context.Context, event entity.ProgressEvent) {
	b.mu.RLock()
	sinks := append([]repository.ProgressNotifier(nil), b.sinks...)
	b.mu.RUnlock()
	for _, s := range sinks {
		s.Notify(ctx, event)
	}
}

// LogNotifier writes progress events to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, event entity.ProgressEvent) {
	level := slog.LevelInfo
	if event.Kind == entity.ProgressKindError {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "Extraction progress",
		"run_id", event.RunID, "kind", event.Kind, "progress", event.Progress, "message", event.Message)
}

// ProgressFunc adapts a function to repository.ProgressNotifier.
type ProgressFunc func(ctx context.Context, event entity.ProgressEvent)

func (f ProgressFunc) Notify(ctx context.Context, event entity.ProgressEvent) {
	f(ctx, event)
}
