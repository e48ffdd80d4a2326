package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/text/unicode/norm"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// DefaultMaxBytes bounds how much of a source is read.
const DefaultMaxBytes = 10 << 20

// StdinSource is the source name that reads standard input.
const StdinSource = "-"

// Extractor reads text from URLs, files and stdin.
type Extractor struct {
	Client    *http.Client
	Stdin     io.Reader
	UserAgent string
	MaxBytes  int64
	Logger    *log.Logger
}

// New returns an extractor with default settings.
func New(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{
		Client:    &http.Client{Timeout: 30 * time.Second},
		Stdin:     os.Stdin,
		UserAgent: "readaloud",
		MaxBytes:  DefaultMaxBytes,
		Logger:    logger,
	}
}

type kind int

const (
	kindPlain kind = iota
	kindHTML
	kindMarkdown
)

// Extract returns the readable text of source: an http(s) URL, "-" for
// stdin, or a file path. An empty result means the source had no text.
func (e *Extractor) Extract(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", tts.ErrNoTarget
	}

	var (
		data []byte
		k    kind
		err  error
	)
	switch {
	case source == StdinSource:
		data, err = e.read(e.Stdin)
		k = sniff(data, "")
	case isURL(source):
		data, k, err = e.fetch(ctx, source)
	default:
		data, k, err = e.readFile(source)
	}
	if err != nil {
		return "", tts.NewTTSError(tts.ErrorCodeExtraction, "read "+source, err)
	}

	out, err := render(data, k)
	if err != nil {
		return "", tts.NewTTSError(tts.ErrorCodeExtraction, "parse "+source, err)
	}
	e.Logger.Debug("extracted text", "source", source, "bytes", len(data), "chars", len(out))
	return out, nil
}

func render(data []byte, k kind) (string, error) {
	var out string
	switch k {
	case kindHTML:
		t, err := FromHTML(bytes.NewReader(data))
		if err != nil {
			return "", err
		}
		out = t
	case kindMarkdown:
		out = FromMarkdown(data)
	default:
		out = string(data)
	}
	return strings.TrimSpace(norm.NFC.String(out)), nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (e *Extractor) read(r io.Reader) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("no input")
	}
	limit := e.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	return io.ReadAll(io.LimitReader(r, limit))
}

func (e *Extractor) fetch(ctx context.Context, source string) ([]byte, kind, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, kindPlain, err
	}
	if e.UserAgent != "" {
		req.Header.Set("User-Agent", e.UserAgent)
	}
	req.Header.Set("Accept", "text/html, text/markdown;q=0.9, text/plain;q=0.8")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, kindPlain, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, kindPlain, fmt.Errorf("GET %s: %s", source, resp.Status)
	}

	data, err := e.read(resp.Body)
	if err != nil {
		return nil, kindPlain, err
	}

	k := sniff(data, resp.Header.Get("Content-Type"))
	if k == kindPlain {
		k = byExtension(resp.Request.URL.Path, k)
	}
	return data, k, nil
}

func (e *Extractor) readFile(source string) ([]byte, kind, error) {
	path, err := homedir.Expand(source)
	if err != nil {
		return nil, kindPlain, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, kindPlain, err
	}
	defer f.Close() //nolint:errcheck

	data, err := e.read(f)
	if err != nil {
		return nil, kindPlain, err
	}
	return data, byExtension(path, sniff(data, "")), nil
}

func byExtension(path string, fallback kind) kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown", ".mkd":
		return kindMarkdown
	case ".html", ".htm", ".xhtml":
		return kindHTML
	case ".txt", ".text":
		return kindPlain
	}
	return fallback
}

// sniff classifies data from a Content-Type header, or from its leading
// bytes when the header is missing.
func sniff(data []byte, contentType string) kind {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return kindPlain
	}
	switch mt {
	case "text/html", "application/xhtml+xml":
		return kindHTML
	case "text/markdown", "text/x-markdown":
		return kindMarkdown
	}
	return kindPlain
}
