package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/user/poll-extractor/internal/repository"
)

var errStaleElement = errors.New("stale element reference")

// fakeNode describes an element on a fake page. Clicking a node with Href
// navigates there; OnClick runs arbitrary behavior instead.
type fakeNode struct {
	Text    string
	Attrs   map[string]string
	Props   map[string]string
	Href    string
	OnClick func(b *fakeBrowser) error
}

type fakePage struct {
	HTML     string
	Elements map[string][]fakeNode
}

// fakeBrowser is a scripted browser whose element handles go stale on every
// navigation, like the real portal.
type fakeBrowser struct {
	mu sync.Mutex

	pages   map[string]*fakePage
	current string
	history []string
	gen     int

	visits    []string
	typed     map[string]string
	closed    bool
	failOnNav map[string]error
}

func newFakeBrowser(pages map[string]*fakePage) *fakeBrowser {
	return &fakeBrowser{
		pages:     pages,
		typed:     map[string]string{},
		failOnNav: map[string]error{},
	}
}

func (b *fakeBrowser) visit(url string) error {
	if err, ok := b.failOnNav[url]; ok {
		return err
	}
	if b.current != "" {
		b.history = append(b.history, b.current)
	}
	b.current = url
	b.gen++
	b.visits = append(b.visits, url)
	return nil
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visit(url)
}

func (b *fakeBrowser) Back(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.history) == 0 {
		return errors.New("no history")
	}
	b.current = b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	b.gen++
	return nil
}

func (b *fakeBrowser) CurrentURL(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current, nil
}

func (b *fakeBrowser) FindAll(_ context.Context, selector string) ([]repository.Element, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	page, ok := b.pages[b.current]
	if !ok {
		return nil, nil
	}
	var out []repository.Element
	for i, n := range page.Elements[selector] {
		out = append(out, &fakeElement{b: b, node: n, gen: b.gen, key: fmt.Sprintf("%s#%d", selector, i)})
	}
	return out, nil
}

func (b *fakeBrowser) PageHTML(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if page, ok := b.pages[b.current]; ok {
		return page.HTML, nil
	}
	return "<html><body></body></html>", nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBrowser) visitCount(url string) int {
	n := 0
	for _, v := range b.visits {
		if v == url {
			n++
		}
	}
	return n
}

type fakeElement struct {
	b    *fakeBrowser
	node fakeNode
	gen  int
	key  string
}

func (e *fakeElement) live() error {
	if e.gen != e.b.gen {
		return errStaleElement
	}
	return nil
}

func (e *fakeElement) Text(_ context.Context) (string, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.live(); err != nil {
		return "", err
	}
	return e.node.Text, nil
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.live(); err != nil {
		return "", false, err
	}
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Property(_ context.Context, name string) (string, error) {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.live(); err != nil {
		return "", err
	}
	return e.node.Props[name], nil
}

func (e *fakeElement) Click(_ context.Context) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	if e.node.OnClick != nil {
		return e.node.OnClick(e.b)
	}
	if e.node.Href != "" {
		return e.b.visit(e.node.Href)
	}
	return nil
}

func (e *fakeElement) Clear(_ context.Context) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	delete(e.b.typed, e.key)
	return nil
}

func (e *fakeElement) SendKeys(_ context.Context, text string) error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	if text == repository.KeyEnter && e.node.OnClick != nil {
		return e.node.OnClick(e.b)
	}
	e.b.typed[e.key] += text
	return nil
}

// sessionLinks builds listing-page anchors whose text is title plus a date line.
func sessionLinks(links ...fakeNode) map[string][]fakeNode {
	return map[string][]fakeNode{"a.session-link": links}
}

func link(text, href string) fakeNode {
	return fakeNode{Text: text + "\nSep 3, 2025", Href: href}
}

func htmlPage(body string) string {
	return "<html><body>" + strings.TrimSpace(body) + "</body></html>"
}
