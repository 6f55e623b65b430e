package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/poll-extractor/internal/entity"
	"github.com/user/poll-extractor/internal/repository"
)

// ElementStrategy locates one element on the current page. It returns nil
// without error when its heuristic does not match.
type ElementStrategy func(ctx context.Context, b repository.Browser) (repository.Element, error)

// SuccessSignal inspects the page after submitting the login form.
type SuccessSignal func(currentURL string, doc *goquery.Document) bool

// AuthOptions tunes the login heuristics.
type AuthOptions struct {
	PortalURL       string
	ConsentSelector string
	Username        []ElementStrategy
	Password        []ElementStrategy
	Submit          []ElementStrategy
	Signals         []SuccessSignal
	ErrorSelectors  []string
	PageLoadWait    time.Duration
	SubmitWait      time.Duration
}

// DefaultAuthOptions returns the selector chains known to work against the portal.
func DefaultAuthOptions(portalURL string, pageLoadWait, submitWait time.Duration) AuthOptions {
	return AuthOptions{
		PortalURL:       portalURL,
		ConsentSelector: "#onetrust-accept-btn-handler",
		Username: append(SelectorStrategies(
			"#input-email",
			"input[type='email']",
			"input[name='username']",
			"input[name='email']",
			"#username",
			"#email",
			"[data-testid='username']",
			"[data-testid='email']",
		), InputAttributeStrategy("email", "user", "login")),
		Password: SelectorStrategies(
			"#input-password",
			"input[type='password']",
			"input[name='password']",
			"#password",
			"[data-testid='password']",
		),
		Submit: []ElementStrategy{
			ButtonTextStrategy("sign in", "login", "log in"),
			SelectorStrategy("button[type='submit']"),
			SelectorStrategy("input[type='submit']"),
			SelectorStrategy("[data-testid='login-button']"),
			SelectorStrategy("[data-testid='submit']"),
		},
		Signals: []SuccessSignal{
			URLLeftLoginSignal(portalURL),
			URLContainsSignal("dashboard", "courses", "activities"),
			PageTextSignal("sign out", "logout", "log out"),
		},
		ErrorSelectors: []string{".error", ".alert", ".warning", "[data-testid='error']", ".login-error"},
		PageLoadWait:   pageLoadWait,
		SubmitWait:     submitWait,
	}
}

// Authenticator logs a browser session into the portal.
type Authenticator struct {
	opts AuthOptions
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(opts AuthOptions) *Authenticator {
	return &Authenticator{opts: opts}
}

// Authenticate fills and submits the login form, then decides success from
// the configured signals. Failure is reported as entity.ErrAuthentication.
func (a *Authenticator) Authenticate(ctx context.Context, b repository.Browser, username, password string) error {
	slog.Info("Navigating to portal login page", "url", a.opts.PortalURL)
	if err := b.Navigate(ctx, a.opts.PortalURL); err != nil {
		return fmt.Errorf("%w: login page did not load: %v", entity.ErrAuthentication, err)
	}
	if err := settle(ctx, a.opts.PageLoadWait); err != nil {
		return err
	}

	a.dismissConsent(ctx, b)

	userField, err := firstMatch(ctx, b, a.opts.Username)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrAuthentication, err)
	}
	if userField == nil {
		return fmt.Errorf("%w: could not find username/email field on login page", entity.ErrAuthentication)
	}
	passField, err := firstMatch(ctx, b, a.opts.Password)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrAuthentication, err)
	}
	if passField == nil {
		return fmt.Errorf("%w: could not find password field on login page", entity.ErrAuthentication)
	}

	if err := fill(ctx, userField, username); err != nil {
		return fmt.Errorf("%w: entering username: %v", entity.ErrAuthentication, err)
	}
	if err := fill(ctx, passField, password); err != nil {
		return fmt.Errorf("%w: entering password: %v", entity.ErrAuthentication, err)
	}

	submit, err := firstMatch(ctx, b, a.opts.Submit)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrAuthentication, err)
	}
	if submit != nil {
		slog.Debug("Clicking submit control")
		err = submit.Click(ctx)
	} else {
		slog.Info("Submit control not found, pressing enter in password field")
		err = passField.SendKeys(ctx, repository.KeyEnter)
	}
	if err != nil {
		return fmt.Errorf("%w: submitting login form: %v", entity.ErrAuthentication, err)
	}

	if err := settle(ctx, a.opts.SubmitWait); err != nil {
		return err
	}
	return a.verify(ctx, b)
}

func (a *Authenticator) dismissConsent(ctx context.Context, b repository.Browser) {
	if a.opts.ConsentSelector == "" {
		return
	}
	els, err := b.FindAll(ctx, a.opts.ConsentSelector)
	if err != nil || len(els) == 0 {
		return
	}
	if err := els[0].Click(ctx); err != nil {
		slog.Debug("Could not dismiss consent overlay", "error", err)
		return
	}
	_ = settle(ctx, time.Second)
}

func (a *Authenticator) verify(ctx context.Context, b repository.Browser) error {
	currentURL, err := b.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading location after login: %v", entity.ErrAuthentication, err)
	}
	html, err := b.PageHTML(ctx)
	if err != nil {
		return fmt.Errorf("%w: reading page after login: %v", entity.ErrAuthentication, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("%w: parsing page after login: %v", entity.ErrAuthentication, err)
	}

	for _, signal := range a.opts.Signals {
		if signal(currentURL, doc) {
			slog.Info("Login successful", "url", currentURL)
			return nil
		}
	}

	msg := "login could not be confirmed"
	for _, sel := range a.opts.ErrorSelectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			msg = text
			break
		}
	}
	return fmt.Errorf("%w: %s", entity.ErrAuthentication, msg)
}

func fill(ctx context.Context, el repository.Element, value string) error {
	if err := el.Clear(ctx); err != nil {
		return err
	}
	return el.SendKeys(ctx, value)
}

func firstMatch(ctx context.Context, b repository.Browser, strategies []ElementStrategy) (repository.Element, error) {
	for _, strategy := range strategies {
		el, err := strategy(ctx, b)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
	return nil, nil
}

// SelectorStrategy matches the first element for a CSS selector.
func SelectorStrategy(selector string) ElementStrategy {
	return func(ctx context.Context, b repository.Browser) (repository.Element, error) {
		els, err := b.FindAll(ctx, selector)
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			return nil, nil
		}
		slog.Debug("Matched element", "selector", selector)
		return els[0], nil
	}
}

// SelectorStrategies builds one SelectorStrategy per selector, in order.
func SelectorStrategies(selectors ...string) []ElementStrategy {
	out := make([]ElementStrategy, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, SelectorStrategy(s))
	}
	return out
}

// InputAttributeStrategy scans every input for a type, name, id or
// placeholder mentioning one of the terms.
func InputAttributeStrategy(terms ...string) ElementStrategy {
	return func(ctx context.Context, b repository.Browser) (repository.Element, error) {
		inputs, err := b.FindAll(ctx, "input")
		if err != nil {
			return nil, err
		}
		for _, in := range inputs {
			var sb strings.Builder
			for _, attr := range []string{"type", "name", "id", "placeholder"} {
				v, _, err := in.Attribute(ctx, attr)
				if err != nil {
					return nil, err
				}
				sb.WriteString(strings.ToLower(v))
			}
			for _, term := range terms {
				if strings.Contains(sb.String(), term) {
					return in, nil
				}
			}
		}
		return nil, nil
	}
}

// ButtonTextStrategy matches the first button whose text contains one of the labels.
func ButtonTextStrategy(labels ...string) ElementStrategy {
	return func(ctx context.Context, b repository.Browser) (repository.Element, error) {
		buttons, err := b.FindAll(ctx, "button")
		if err != nil {
			return nil, err
		}
		for _, btn := range buttons {
			text, err := btn.Text(ctx)
			if err != nil {
				return nil, err
			}
			text = strings.ToLower(text)
			for _, label := range labels {
				if strings.Contains(text, label) {
					return btn, nil
				}
			}
		}
		return nil, nil
	}
}

// URLLeftLoginSignal fires once the location is a portal route that is no
// longer the login page.
func URLLeftLoginSignal(portalURL string) SuccessSignal {
	root := strings.TrimRight(portalURL, "/")
	return func(currentURL string, _ *goquery.Document) bool {
		u := strings.ToLower(currentURL)
		if strings.Contains(u, "login") || strings.Contains(u, "signin") || strings.Contains(u, "sign-in") {
			return false
		}
		trimmed := strings.TrimRight(currentURL, "/")
		return trimmed != root && trimmed != root+"/#" && strings.Contains(currentURL, "#/")
	}
}

// URLContainsSignal fires when the location mentions one of the fragments.
func URLContainsSignal(fragments ...string) SuccessSignal {
	return func(currentURL string, _ *goquery.Document) bool {
		u := strings.ToLower(currentURL)
		for _, f := range fragments {
			if strings.Contains(u, f) {
				return true
			}
		}
		return false
	}
}

// PageTextSignal fires when a link or button carries one of the labels.
func PageTextSignal(labels ...string) SuccessSignal {
	return func(_ string, doc *goquery.Document) bool {
		found := false
		doc.Find("a, button, [role='button'], [role='menuitem']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.ToLower(strings.TrimSpace(s.Text()))
			for _, label := range labels {
				if strings.Contains(text, label) {
					found = true
					return false
				}
			}
			return true
		})
		return found
	}
}
