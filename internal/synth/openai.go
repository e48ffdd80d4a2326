package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// maxAudioBytes bounds a single response body.
const maxAudioBytes = 32 << 20

var _ Synthesizer = (*OpenAI)(nil)

// OpenAI synthesizes speech with the OpenAI speech endpoint. The API key is
// supplied per request, so one client serves every session.
type OpenAI struct {
	client oai.Client
	logger *log.Logger
}

type config struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	logger     *log.Logger
}

// Option configures an OpenAI synthesizer.
type Option func(*config)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// WithTimeout sets a per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxRetries sets how often a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// NewOpenAI creates an OpenAI synthesizer.
func NewOpenAI(opts ...Option) *OpenAI {
	cfg := &config{maxRetries: 1, timeout: 60 * time.Second}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}

	reqOpts := []option.RequestOption{
		option.WithMaxRetries(cfg.maxRetries),
		option.WithRequestTimeout(cfg.timeout),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}

	return &OpenAI{
		client: oai.NewClient(reqOpts...),
		logger: cfg.logger,
	}
}

// Synthesize requests speech for req.Text and returns the encoded body.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.APIKey == "" {
		return nil, tts.NewTTSError(tts.ErrorCodeMissingCredential, "no API key", tts.ErrMissingAPIKey)
	}
	format := req.Format
	if format == "" {
		format = tts.FormatMP3
	}

	start := time.Now()
	resp, err := o.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Input:          req.Text,
		Model:          oai.SpeechModel(req.Model),
		Voice:          oai.AudioSpeechNewParamsVoice(req.Voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormat(format),
	}, option.WithAPIKey(req.APIKey))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if len(data) == 0 {
		return nil, tts.NewTTSError(tts.ErrorCodeTransport, "empty audio response", nil)
	}

	o.logger.Debug("synthesized chunk",
		"format", format,
		"chars", len(req.Text),
		"bytes", len(data),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return data, nil
}

func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return tts.NewTTSError(tts.ErrorCodeCanceled, "synthesis canceled", ctxErr)
	}

	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return tts.NewTTSError(tts.ErrorCodeTransport,
			fmt.Sprintf("speech request failed with status %d", apiErr.StatusCode), err).
			WithContext("status", apiErr.StatusCode)
	}
	return tts.NewTTSError(tts.ErrorCodeTransport, "speech request failed", err)
}
