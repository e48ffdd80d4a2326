package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// prose returns at least n characters of sentences.
func prose(n int) string {
	var b strings.Builder
	for i := 0; b.Len() <= n; i++ {
		fmt.Fprintf(&b, "Sentence number %d is here. ", i)
	}
	return strings.TrimSpace(b.String())
}

func TestFromHTML(t *testing.T) {
	long := prose(600)
	short := "Too short to count."

	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name: "main wins",
			html: `<html><body><nav>Menu</nav><main><p>` + long + `</p></main><footer>Footer</footer></body></html>`,
			contains: []string{long},
			excludes: []string{"Menu", "Footer"},
		},
		{
			name: "short main falls through to article",
			html: `<body><main>` + short + `</main><article><p>` + long + `</p></article><aside>Aside</aside></body>`,
			contains: []string{long},
			excludes: []string{short, "Aside"},
		},
		{
			name: "role main",
			html: `<body><div role="main"><p>` + long + `</p></div><div>Sidebar</div></body>`,
			contains: []string{long},
			excludes: []string{"Sidebar"},
		},
		{
			name: "paragraphs joined by blank lines",
			html: `<body><div>Header</div><p>` + prose(300) + `</p><div><p>` + prose(300) + `</p></div></body>`,
			contains: []string{prose(300) + "\n\n" + prose(300)},
			excludes: []string{"Header"},
		},
		{
			name:     "body fallback",
			html:     `<body><h1>Title</h1><div>Some <b>bold</b> text.</div></body>`,
			contains: []string{"Title\nSome bold text."},
		},
		{
			name: "hidden content skipped",
			html: `<head><title>T</title><style>p{}</style></head><body><script>var x = 1;</script>` +
				`<noscript>Enable JS</noscript><template>Tpl</template><div hidden>Hidden</div>` +
				`<span aria-hidden="true">Icon</span><div style="display: none">None</div><p>Visible.</p></body>`,
			contains: []string{"Visible."},
			excludes: []string{"var x", "Enable JS", "Tpl", "Hidden", "Icon", "None", "p{}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromHTML(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("FromHTML: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("output contains %q:\n%s", bad, got)
				}
			}
		})
	}
}

func TestFromMarkdown(t *testing.T) {
	src := "# Heading\n\nFirst line\nwraps here.\n\n```go\nfmt.Println(\"code\")\n```\n\n" +
		"- item one\n- item two\n\n> quoted text\n\n![alt](img.png) See <https://example.com>.\n\n<div>raw</div>\n"

	got := FromMarkdown([]byte(src))

	for _, want := range []string{"Heading", "First line wraps here.", "item one", "item two", "quoted text", "https://example.com"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	for _, bad := range []string{"Println", "alt", "raw", "#", "```"} {
		if strings.Contains(got, bad) {
			t.Errorf("unexpected %q in:\n%s", bad, got)
		}
	}
}

func newTestExtractor() *Extractor {
	e := New(log.New(io.Discard))
	e.Stdin = strings.NewReader("")
	return e
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"page.html": "<html><body><p>From HTML.</p></body></html>",
		"notes.md":  "# Notes\n\nFrom *markdown*.",
		"plain.txt": "  From plain text.  \n",
		"noext":     "<!DOCTYPE html><html><body><p>Sniffed.</p></body></html>",
	}
	want := map[string]string{
		"page.html": "From HTML.",
		"notes.md":  "Notes\n\nFrom markdown.",
		"plain.txt": "From plain text.",
		"noext":     "Sniffed.",
	}

	e := newTestExtractor()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := e.Extract(context.Background(), path)
		if err != nil {
			t.Errorf("Extract(%s): %v", name, err)
			continue
		}
		if got != want[name] {
			t.Errorf("Extract(%s) = %q, want %q", name, got, want[name])
		}
	}
}

func TestExtractURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><article><p>Fetched article.</p></article></body></html>")
		case "/readme.md":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "## Readme\n\nMarkdown over HTTP.")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newTestExtractor()
	e.Client = srv.Client()

	got, err := e.Extract(context.Background(), srv.URL+"/article")
	if err != nil || got != "Fetched article." {
		t.Errorf("Extract(article) = %q, %v", got, err)
	}

	got, err = e.Extract(context.Background(), srv.URL+"/readme.md")
	if err != nil || got != "Readme\n\nMarkdown over HTTP." {
		t.Errorf("Extract(readme) = %q, %v", got, err)
	}

	_, err = e.Extract(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, tts.ErrNoText) {
		t.Errorf("Extract(missing) = %v, want extraction error", err)
	}
}

func TestExtractStdinAndNormalization(t *testing.T) {
	e := newTestExtractor()
	// "e" followed by a combining acute accent composes to a single rune
	e.Stdin = strings.NewReader("Caf\u0065\u0301 time.\n")

	got, err := e.Extract(context.Background(), StdinSource)
	if err != nil {
		t.Fatalf("Extract(stdin): %v", err)
	}
	if got != "Caf\u00e9 time." {
		t.Errorf("Extract(stdin) = %q", got)
	}
}

func TestExtractErrors(t *testing.T) {
	e := newTestExtractor()

	if _, err := e.Extract(context.Background(), "  "); !errors.Is(err, tts.ErrNoTarget) {
		t.Errorf("empty source: %v, want ErrNoTarget", err)
	}
	if _, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("missing file did not fail")
	}

	path := filepath.Join(t.TempDir(), "empty.txt")
	_ = os.WriteFile(path, []byte("   \n"), 0o600)
	got, err := e.Extract(context.Background(), path)
	if err != nil || got != "" {
		t.Errorf("empty file = %q, %v; want empty text without error", got, err)
	}
}
