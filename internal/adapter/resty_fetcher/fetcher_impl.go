package resty_fetcher

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/user/poll-extractor/internal/repository"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36"

// Fetcher downloads image bytes with a bounded GET.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration) repository.ImageFetcher {
	client := resty.New()
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(timeout)
	return &Fetcher{client: client}
}

// Fetch returns the status code and body of url. Non-200 answers are not
// errors; err is only set when no response was received.
func (f *Fetcher) Fetch(ctx context.Context, url string) (int, []byte, error) {
	res, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, nil, err
	}
	return res.StatusCode(), res.Body(), nil
}
