package repository

import "context"

// KeyEnter is the key sequence that submits a focused form field.
const KeyEnter = "\r"

// Browser is an exclusively owned browser session. Element handles returned
// by FindAll are only valid until the next navigation.
type Browser interface {
	// Navigate loads a URL in the current tab.
	Navigate(ctx context.Context, url string) error
	// Back goes one step back in the tab's history.
	Back(ctx context.Context) error
	// CurrentURL returns the tab's location.
	CurrentURL(ctx context.Context) (string, error)
	// FindAll returns every element matching a CSS selector, possibly none.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// PageHTML returns the serialized document.
	PageHTML(ctx context.Context) (string, error)
	// Close tears the session down.
	Close() error
}

// Element is a DOM element handle.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it was present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Property reads a live DOM property such as currentSrc.
	Property(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
}

// BrowserLauncher starts fresh browser sessions.
type BrowserLauncher interface {
	Launch(ctx context.Context) (Browser, error)
}
