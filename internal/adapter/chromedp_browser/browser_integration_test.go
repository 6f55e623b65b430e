package chromedp_browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/poll-extractor/internal/repository"
)

const fixturePage = `<!doctype html>
<html><body>
<h1 id="title">Question 1</h1>
<img id="poll" src="/img/q1.png" alt="Question 1 image">
<img id="bare" src="/img/q2.png">
<input id="name" type="text" value="prefilled">
<a id="next" href="#/next">Next</a>
<button id="flip" onclick="document.getElementById('title').textContent = 'Clicked'">Flip</button>
</body></html>`

func findChrome(t *testing.T) string {
	t.Helper()
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("skipping test because no chrome binary is available")
	return ""
}

func launchBrowser(t *testing.T, opTimeout time.Duration) repository.Browser {
	t.Helper()
	execPath := findChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	b, err := NewLauncher(true, opTimeout, execPath).Launch(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, fixturePage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func firstElement(t *testing.T, ctx context.Context, b repository.Browser, selector string) repository.Element {
	t.Helper()
	els, err := b.FindAll(ctx, selector)
	require.NoError(t, err)
	require.Len(t, els, 1)
	return els[0]
}

func TestBrowserSessionOutlivesLaunchContext(t *testing.T) {
	srv := fixtureServer(t)
	b := launchBrowser(t, 5*time.Second)
	ctx := context.Background()

	// Several operations, spaced past the startup call, on the same session.
	for i := 0; i < 2; i++ {
		require.NoError(t, b.Navigate(ctx, srv.URL+"/"))
		loc, err := b.CurrentURL(ctx)
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/", loc)
	}
}

func TestBrowserElementOperations(t *testing.T) {
	srv := fixtureServer(t)
	b := launchBrowser(t, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/"))

	imgs, err := b.FindAll(ctx, "img")
	require.NoError(t, err)
	assert.Len(t, imgs, 2)

	none, err := b.FindAll(ctx, ".does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, none)

	title := firstElement(t, ctx, b, "#title")
	text, err := title.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Question 1", text)

	alt, ok, err := firstElement(t, ctx, b, "#poll").Attribute(ctx, "alt")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Question 1 image", alt)

	alt, ok, err = firstElement(t, ctx, b, "#bare").Attribute(ctx, "alt")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, alt)

	src, err := firstElement(t, ctx, b, "#poll").Property(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/img/q1.png", src)

	missing, err := firstElement(t, ctx, b, "#poll").Property(ctx, "noSuchProperty")
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, firstElement(t, ctx, b, "#flip").Click(ctx))
	text, err = firstElement(t, ctx, b, "#title").Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Clicked", text)

	input := firstElement(t, ctx, b, "#name")
	require.NoError(t, input.Clear(ctx))
	require.NoError(t, input.SendKeys(ctx, "typed"))
	value, err := input.Property(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "typed", value)

	html, err := b.PageHTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, `id="flip"`)
}

func TestBrowserHashNavigation(t *testing.T) {
	srv := fixtureServer(t)
	b := launchBrowser(t, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/"))
	require.NoError(t, b.Navigate(ctx, srv.URL+"/#/course/c1"))

	assert.Eventually(t, func() bool {
		loc, err := b.CurrentURL(ctx)
		return err == nil && loc == srv.URL+"/#/course/c1"
	}, 5*time.Second, 100*time.Millisecond)
}
