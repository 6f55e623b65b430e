package repository

import "context"

// ImageFetcher performs a bounded HTTP GET for image bytes.
type ImageFetcher interface {
	// Fetch returns the status code and body. A non-nil error means no response was received.
	Fetch(ctx context.Context, url string) (int, []byte, error)
}
