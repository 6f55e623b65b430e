package usecase

import (
	"context"
	"net/http"
	"sync"
)

type fakeResponse struct {
	status int
	body   []byte
	err    error
}

// fakeFetcher answers from a fixed URL table; unknown URLs get a 404.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	requested []string
}

func newFakeFetcher(responses map[string]fakeResponse) *fakeFetcher {
	return &fakeFetcher{responses: responses}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, url)
	r, ok := f.responses[url]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	if r.err != nil {
		return 0, nil, r.err
	}
	return r.status, r.body, nil
}
