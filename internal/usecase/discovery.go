package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/pkg/metrics"
	"github.com/user/poll-extractor/pkg/utils"
)

const defaultMaxDiscoveryAttempts = 20

// DiscoveryOptions tunes the listing-page traversal.
type DiscoveryOptions struct {
	LinkSelector  string
	SessionMarker string
	ClassMarker   string
	MaxAttempts   int
	// NavigationWait is the pause after a click and after returning to the listing.
	NavigationWait time.Duration
}

// DefaultDiscoveryOptions matches the portal's class-history markup.
func DefaultDiscoveryOptions(navigationWait time.Duration, maxAttempts int) DiscoveryOptions {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxDiscoveryAttempts
	}
	return DiscoveryOptions{
		LinkSelector:   "a.session-link",
		SessionMarker:  "Poll",
		ClassMarker:    "Class",
		MaxAttempts:    maxAttempts,
		NavigationWait: navigationWait,
	}
}

// Discoverer enumerates the activities linked from a course listing page.
type Discoverer struct {
	opts DiscoveryOptions
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(opts DiscoveryOptions) *Discoverer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxDiscoveryAttempts
	}
	return &Discoverer{opts: opts}
}

// Discover walks the listing page currently loaded in b. Each attempt
// re-reads the links, clicks the first unprocessed session link, reads the
// activity id from the resulting URL and returns to the listing. Handles are
// never reused across navigations.
//
// Links are keyed by their visible text because ids are only known after
// navigating, so two sessions sharing the same text collapse into one.
func (d *Discoverer) Discover(ctx context.Context, b repository.Browser) ([]entity.ActivityRef, error) {
	listingURL, err := b.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading listing URL: %v", entity.ErrScraping, err)
	}

	processed := make(map[string]bool)
	seenIDs := make(map[string]bool)
	var refs []entity.ActivityRef

	for attempt := 0; attempt < d.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return refs, err
		}

		links, err := b.FindAll(ctx, d.opts.LinkSelector)
		if err != nil {
			return refs, fmt.Errorf("%w: reading session links: %v", entity.ErrScraping, err)
		}
		if attempt == 0 {
			slog.Info("Found session links", "count", len(links))
		}

		link, key, err := d.nextCandidate(ctx, links, processed)
		if err != nil {
			return refs, err
		}
		if link == nil {
			slog.Info("Processed all available session links", "activities", len(refs))
			return refs, nil
		}

		// Marked before clicking so an unrecoverable link cannot be retried forever.
		processed[key] = true
		slog.Info("Processing session link", "text", key)

		ref, ok := d.visit(ctx, b, link, key)
		if ok && !seenIDs[ref.ActivityID] {
			seenIDs[ref.ActivityID] = true
			refs = append(refs, ref)
			metrics.ActivitiesDiscovered.Inc()
			slog.Info("Found activity", "activity_id", ref.ActivityID, "name", ref.DisplayName)
		}

		if err := d.returnToListing(ctx, b, listingURL); err != nil {
			return refs, err
		}
	}

	slog.Warn("Discovery attempt bound reached, returning partial list",
		"max_attempts", d.opts.MaxAttempts, "activities", len(refs))
	return refs, nil
}

// nextCandidate returns the first session link, in page order, whose
// normalized text has not been processed yet.
func (d *Discoverer) nextCandidate(ctx context.Context, links []repository.Element, processed map[string]bool) (repository.Element, string, error) {
	for _, l := range links {
		text, err := l.Text(ctx)
		if err != nil {
			slog.Debug("Skipping unreadable session link", "error", err)
			continue
		}
		key := utils.FirstLine(text)
		if !d.isSessionLink(key) || processed[key] {
			continue
		}
		return l, key, nil
	}
	return nil, "", nil
}

func (d *Discoverer) isSessionLink(text string) bool {
	return strings.Contains(text, d.opts.SessionMarker) && strings.Contains(text, d.opts.ClassMarker)
}

func (d *Discoverer) visit(ctx context.Context, b repository.Browser, link repository.Element, name string) (entity.ActivityRef, bool) {
	if err := link.Click(ctx); err != nil {
		slog.Error("Error clicking session link", "text", name, "error", err)
		return entity.ActivityRef{}, false
	}
	if err := settle(ctx, d.opts.NavigationWait); err != nil {
		return entity.ActivityRef{}, false
	}

	currentURL, err := b.CurrentURL(ctx)
	if err != nil {
		slog.Error("Error reading URL after click", "text", name, "error", err)
		return entity.ActivityRef{}, false
	}
	id, ok := utils.ActivityIDFromURL(currentURL)
	if !ok {
		slog.Warn("No activity ID found in URL", "text", name, "url", currentURL)
		return entity.ActivityRef{}, false
	}
	return entity.ActivityRef{ActivityID: id, DisplayName: name, SourceURL: currentURL}, true
}

// returnToListing goes back in history, falling back to a fresh load of the
// listing when back navigation fails or lands elsewhere.
func (d *Discoverer) returnToListing(ctx context.Context, b repository.Browser, listingURL string) error {
	current, err := b.CurrentURL(ctx)
	if err == nil && current == listingURL {
		return settle(ctx, d.opts.NavigationWait)
	}
	if err := b.Back(ctx); err != nil {
		slog.Warn("Back navigation failed, reloading listing", "error", err)
	}
	if err := settle(ctx, d.opts.NavigationWait); err != nil {
		return err
	}
	if current, err := b.CurrentURL(ctx); err == nil && current == listingURL {
		return nil
	}
	if err := b.Navigate(ctx, listingURL); err != nil {
		return fmt.Errorf("%w: returning to listing page: %v", entity.ErrScraping, err)
	}
	return settle(ctx, d.opts.NavigationWait)
}
