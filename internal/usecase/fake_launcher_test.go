package usecase

import (
	"context"
	"sync"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

type fakeLauncher struct {
	browser  *fakeBrowser
	err      error
	launches int
}

func (l *fakeLauncher) Launch(_ context.Context) (repository.Browser, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

// recordingNotifier keeps every progress event it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	events []entity.ProgressEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event entity.ProgressEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) progress() []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]float64, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Progress)
	}
	return out
}

func (n *recordingNotifier) last() entity.ProgressEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return entity.ProgressEvent{}
	}
	return n.events[len(n.events)-1]
}
