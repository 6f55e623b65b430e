package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/user/poll-extractor/internal/repository"
)

const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36`

// Launcher starts one Chrome process per session.
type Launcher struct {
	headless  bool
	opTimeout time.Duration
	execPath  string
}

// NewLauncher creates a launcher. opTimeout bounds every single browser
// operation after startup. An empty execPath lets chromedp look for Chrome
// in the usual locations.
func NewLauncher(headless bool, opTimeout time.Duration, execPath string) repository.BrowserLauncher {
	return &Launcher{headless: headless, opTimeout: opTimeout, execPath: execPath}
}

// Launch starts Chrome and opens a tab.
func (l *Launcher) Launch(ctx context.Context) (repository.Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	)
	if l.execPath != "" {
		opts = append(opts, chromedp.ExecPath(l.execPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(driverLog(slog.LevelDebug)),
		chromedp.WithErrorf(driverLog(slog.LevelWarn)),
	)

	b := &Browser{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		opTimeout:   l.opTimeout,
	}
	// The first Run allocates the browser process, which lives as long as
	// the context it runs under. It must not carry a timeout.
	if err := b.start(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	slog.Info("Browser session started", "headless", l.headless)
	return b, nil
}

func driverLog(level slog.Level) func(string, ...any) {
	return func(format string, args ...any) {
		slog.Log(context.Background(), level, "chromedp", "detail", fmt.Sprintf(format, args...))
	}
}

// Browser is a single chromedp tab.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	opTimeout   time.Duration
}

// start runs the first, empty action on the tab context itself. ctx only
// aborts the startup.
func (b *Browser) start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- chromedp.Run(b.ctx) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes actions in the tab, bounded by the per-operation timeout and
// by the caller's ctx.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx := b.ctx
	var cancel context.CancelFunc
	if b.opTimeout > 0 {
		opCtx, cancel = context.WithTimeout(opCtx, b.opTimeout)
	} else {
		opCtx, cancel = context.WithCancel(opCtx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(opCtx, actions...)
}

// Navigate loads target. Changes that only differ in the fragment are
// same-document navigations in the portal's router and are applied through
// location.href, since they never fire a load event.
func (b *Browser) Navigate(ctx context.Context, target string) error {
	current, err := b.CurrentURL(ctx)
	if err == nil && sameDocument(current, target) {
		var ignored any
		return b.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.location.href = %q", target), &ignored))
	}
	return b.run(ctx, chromedp.Navigate(target))
}

func sameDocument(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && ua.Host == ub.Host &&
		strings.TrimSuffix(ua.Path, "/") == strings.TrimSuffix(ub.Path, "/") &&
		ua.RawQuery == ub.RawQuery && ub.Fragment != ""
}

func (b *Browser) Back(ctx context.Context) error {
	return b.run(ctx, chromedp.NavigateBack())
}

func (b *Browser) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := b.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// FindAll returns immediately with whatever currently matches selector.
func (b *Browser) FindAll(ctx context.Context, selector string) ([]repository.Element, error) {
	var nodes []*cdp.Node
	if err := b.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	out := make([]repository.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{b: b, node: n})
	}
	return out, nil
}

func (b *Browser) PageHTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close shuts the browser process down.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// element is a DOM node handle. The node id is invalidated by any navigation,
// after which every call fails.
type element struct {
	b    *Browser
	node *cdp.Node
}

// call runs function with this bound to the element.
func (e *element) call(ctx context.Context, function string, res any, args ...any) error {
	return e.b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		err = chromedp.CallFunctionOn(function, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
		// Release fails once the page has navigated away, which is fine.
		_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		return err
	}))
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, `function() { return this.innerText || this.textContent || ""; }`, &text)
	return text, err
}

type attributeValue struct {
	Present bool   `json:"present"`
	Value   string `json:"value"`
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var v attributeValue
	err := e.call(ctx,
		`function(name) { return {present: this.hasAttribute(name), value: this.getAttribute(name) || ""}; }`,
		&v, name)
	if err != nil {
		return "", false, err
	}
	return v.Value, v.Present, nil
}

func (e *element) Property(ctx context.Context, name string) (string, error) {
	var v string
	err := e.call(ctx,
		`function(name) { const v = this[name]; return v === undefined || v === null ? "" : String(v); }`,
		&v, name)
	return v, err
}

func (e *element) Click(ctx context.Context) error {
	var ok bool
	return e.call(ctx, `function() { this.scrollIntoView({block: "center"}); this.click(); return true; }`, &ok)
}

func (e *element) Clear(ctx context.Context) error {
	var ok bool
	return e.call(ctx,
		`function() { this.value = ""; this.dispatchEvent(new Event("input", {bubbles: true})); return true; }`,
		&ok)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.b.run(ctx, chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, text, chromedp.ByNodeID))
}
