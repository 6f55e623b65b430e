package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/poll-extractor/internal/entity"
)

const (
	// ProgressChannel is the pub/sub channel every progress event is published on.
	ProgressChannel = "extractor:progress"
	latestKeyPrefix = "extractor:progress:"
	latestExpiry    = 24 * time.Hour
)

// ProgressRepoImpl publishes progress events over Redis pub/sub and keeps
// the latest event of each run under a key with an expiry.
type ProgressRepoImpl struct {
	client *redis.Client
}

// NewProgressRepo creates a new instance of ProgressRepoImpl.
func NewProgressRepo(client *redis.Client) *ProgressRepoImpl {
	return &ProgressRepoImpl{client: client}
}

func (r *ProgressRepoImpl) latestKey(runID string) string {
	return fmt.Sprintf("%s%s", latestKeyPrefix, runID)
}

// Notify publishes the event. Delivery errors are logged and dropped.
func (r *ProgressRepoImpl) Notify(ctx context.Context, event entity.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode progress event", "error", err)
		return
	}

	pipe := r.client.TxPipeline()
	pipe.Publish(ctx, ProgressChannel, payload)
	pipe.SetEx(ctx, r.latestKey(event.RunID), payload, latestExpiry)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("Failed to publish progress event", "run_id", event.RunID, "error", err)
	}
}

// Latest returns the most recent event of a run. It returns redis.Nil when
// the run is unknown or expired.
func (r *ProgressRepoImpl) Latest(ctx context.Context, runID string) (*entity.ProgressEvent, error) {
	raw, err := r.client.Get(ctx, r.latestKey(runID)).Bytes()
	if err != nil {
		return nil, err
	}
	var event entity.ProgressEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("failed to decode progress event: %w", err)
	}
	return &event, nil
}

// Subscribe delivers published events to fn until ctx is done.
func (r *ProgressRepoImpl) Subscribe(ctx context.Context, fn func(entity.ProgressEvent)) error {
	sub := r.client.Subscribe(ctx, ProgressChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event entity.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("Dropping malformed progress event", "error", err)
				continue
			}
			fn(event)
		}
	}
}
