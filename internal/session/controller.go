// Package session owns the reading session: it acquires text, splits it
// into chunks, synthesizes them with bounded concurrency and feeds the
// playback engine in order. A new read or a stop invalidates everything
// the previous session still has in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/charmbracelet/readaloud/internal/chunk"
	"github.com/charmbracelet/readaloud/internal/observe"
	"github.com/charmbracelet/readaloud/internal/protocol"
	"github.com/charmbracelet/readaloud/internal/settings"
	"github.com/charmbracelet/readaloud/internal/synth"
	"github.com/charmbracelet/readaloud/internal/tts"
)

// DefaultConcurrency bounds outstanding background fetches.
const DefaultConcurrency = 3

var errSuperseded = errors.New("session superseded")

// Host delivers requests to the playback engine. *host.Manager implements it.
type Host interface {
	Supported() bool
	Ensure(ctx context.Context) error
	Send(ctx context.Context, req protocol.Request) (protocol.Response, error)
}

// Extractor turns a source into readable text.
type Extractor interface {
	Extract(ctx context.Context, source string) (string, error)
}

// Config configures a Controller.
type Config struct {
	Host        Host
	Synth       synth.Synthesizer
	Extractor   Extractor
	Settings    settings.Store
	Metrics     *observe.Metrics
	Logger      *log.Logger
	Concurrency int
	MaxChunkLen int

	// APIKey fills an empty stored credential, typically OPENAI_API_KEY.
	APIKey string
}

// ReadRequest starts a session. Source is a URL, file or "-"; a non-empty
// Selection is read instead of the source.
type ReadRequest struct {
	Provider  string
	Voice     string
	Source    string
	Selection string
}

// ReadResult reports how a session was started.
type ReadResult struct {
	Provider tts.Provider
	Chunks   int
}

type metadata struct {
	voice    string
	model    string
	provider tts.Provider
}

type session struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	handles map[int]context.CancelFunc
}

// Controller coordinates reading sessions. Only one session is active.
type Controller struct {
	cfg Config

	mu     sync.Mutex
	active *session
	meta   metadata

	// appendMu orders an append after the active check it depends on.
	appendMu sync.Mutex

	wg sync.WaitGroup
}

// NewController creates a controller.
func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.Noop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxChunkLen <= 0 {
		cfg.MaxChunkLen = chunk.DefaultMaxLen
	}
	return &Controller{cfg: cfg}
}

// StartReading cancels any active session and starts a new one.
func (c *Controller) StartReading(ctx context.Context, req ReadRequest) (ReadResult, error) {
	c.CancelSession()

	if strings.TrimSpace(req.Source) == "" && strings.TrimSpace(req.Selection) == "" {
		return ReadResult{}, tts.NewTTSError(tts.ErrorCodeNoTarget, "nothing to read", nil)
	}

	override, err := tts.ParseProvider(req.Provider)
	if err != nil {
		return ReadResult{}, err
	}
	prefs, err := c.cfg.Settings.Get(ctx, settings.Defaults())
	if err != nil {
		return ReadResult{}, fmt.Errorf("load settings: %w", err)
	}
	prefs = prefs.WithAPIKeyFallback(c.cfg.APIKey)
	stored, err := tts.ParseProvider(prefs.Provider)
	if err != nil {
		c.cfg.Logger.Warn("ignoring stored provider", "provider", prefs.Provider)
		stored = tts.ProviderNone
	}
	provider := tts.ResolveProvider(override, stored, c.cfg.Host.Supported())

	text := strings.TrimSpace(req.Selection)
	if text == "" {
		text, err = c.cfg.Extractor.Extract(ctx, req.Source)
		if err != nil {
			return ReadResult{}, err
		}
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return ReadResult{}, tts.NewTTSError(tts.ErrorCodeExtraction, "no readable text", nil).
			WithContext("source", req.Source)
	}

	c.cfg.Metrics.RecordSession(ctx, provider.String())
	c.cfg.Logger.Info("starting session", "provider", provider, "source", req.Source, "chars", len(text))

	if provider == tts.ProviderWebSpeech {
		return c.startLocal(ctx, text), nil
	}

	voice := req.Voice
	if voice == "" {
		voice = prefs.Voice
	}
	return c.startRemote(ctx, text, synth.Request{
		APIKey: prefs.APIKey,
		Model:  prefs.Model,
		Voice:  voice,
	})
}

func (c *Controller) startLocal(ctx context.Context, text string) ReadResult {
	if err := c.cfg.Host.Ensure(ctx); err != nil {
		c.cfg.Logger.Debug("playback engine not ready", "err", err)
	}
	if err := c.send(ctx, protocol.KindWebSpeechStart, protocol.SpeechPayload{Text: text}); err != nil {
		c.cfg.Logger.Debug("local speech did not start", "err", err)
	}
	c.setMeta(metadata{provider: tts.ProviderWebSpeech})
	return ReadResult{Provider: tts.ProviderWebSpeech, Chunks: 1}
}

func (c *Controller) startRemote(ctx context.Context, text string, base synth.Request) (ReadResult, error) {
	if err := c.cfg.Host.Ensure(ctx); err != nil {
		return ReadResult{}, err
	}
	if base.APIKey == "" {
		return ReadResult{}, tts.NewTTSError(tts.ErrorCodeMissingCredential, "OpenAI API key is not set", nil)
	}

	chunks := chunk.Chunk(text, c.cfg.MaxChunkLen)
	estimate := chunk.EstimateSeconds(chunk.WordCount(text))
	c.setMeta(metadata{voice: base.Voice, model: base.Model, provider: tts.ProviderOpenAI})
	sess := c.begin()

	c.cfg.Logger.Debug("synthesizing", "session", sess.id, "chunks", len(chunks), "estimate", estimate)

	superseded := ReadResult{Provider: tts.ProviderOpenAI, Chunks: len(chunks)}
	err := c.startPipeline(ctx, sess, chunks, estimate, base)
	switch {
	case err == nil, errors.Is(err, errSuperseded), !c.isActive(sess.id):
		return superseded, nil
	}

	res, err := c.fallback(ctx, sess, text, err)
	if errors.Is(err, errSuperseded) {
		return superseded, nil
	}
	return res, err
}

// startPipeline plays the first chunk and hands the rest to the background
// launcher. It returns once the first chunk is queued.
func (c *Controller) startPipeline(ctx context.Context, sess *session, chunks []string, estimate float64, base synth.Request) error {
	if err := c.send(ctx, protocol.KindQueueReset, nil); err != nil {
		return fmt.Errorf("reset queue: %w", err)
	}
	if err := c.send(ctx, protocol.KindQueueSetExpected, protocol.ExpectedPayload{
		ExpectedCount:    len(chunks),
		TotalEstimateSec: estimate,
	}); err != nil {
		return fmt.Errorf("set expected: %w", err)
	}

	fctx, done := c.track(sess, 0)
	data, err := c.fetch(fctx, base, chunks[0], tts.FormatWAV)
	done()

	c.appendMu.Lock()
	defer c.appendMu.Unlock()
	if !c.isActive(sess.id) {
		return errSuperseded
	}
	if err != nil {
		return fmt.Errorf("synthesize first chunk: %w", err)
	}

	if err := c.send(ctx, protocol.KindQueueAppendAudio, protocol.AudioPayload{
		Buffer: data,
		MIME:   tts.FormatWAV.MIME(),
	}); err != nil {
		return fmt.Errorf("append first chunk: %w", err)
	}
	if err := c.send(ctx, protocol.KindQueuePlay, nil); err != nil {
		return fmt.Errorf("start playback: %w", err)
	}

	if len(chunks) > 1 {
		c.wg.Add(1)
		go c.synthesizeRest(sess, chunks, base)
	}
	return nil
}

// synthesizeRest fetches chunks 1..n-1 with bounded concurrency. errgroup's
// Go blocks at the limit, so chunk k+limit starts only after an earlier
// fetch finished.
func (c *Controller) synthesizeRest(sess *session, chunks []string, base synth.Request) {
	defer c.wg.Done()

	seq := newSequencer(1, func(i int, data []byte) {
		c.appendChunk(sess, i, data)
	})

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i := 1; i < len(chunks); i++ {
		if sess.ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fctx, done := c.track(sess, i)
			defer done()

			data, err := c.fetch(fctx, base, chunks[i], tts.FormatMP3)
			if err != nil {
				if c.isActive(sess.id) {
					c.cfg.Logger.Debug("chunk failed", "session", sess.id, "chunk", i, "err", err)
				}
				seq.skip(i)
				c.skipChunk(sess, i)
				return nil
			}
			seq.complete(i, data)
			return nil
		})
	}
	_ = g.Wait()

	if n := seq.buffered(); n > 0 {
		c.cfg.Logger.Debug("dropped out-of-order chunks", "session", sess.id, "chunks", n)
	}
}

func (c *Controller) appendChunk(sess *session, i int, data []byte) {
	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	if !c.isActive(sess.id) {
		return
	}
	err := c.send(sess.ctx, protocol.KindQueueAppendAudio, protocol.AudioPayload{
		Buffer: data,
		MIME:   tts.FormatMP3.MIME(),
	})
	if err != nil {
		c.cfg.Logger.Debug("append failed", "session", sess.id, "chunk", i, "err", err)
		c.cfg.Metrics.RecordChunkFailure(sess.ctx, "append")
	}
}

// skipChunk tells the engine chunk i will not arrive so its share of the
// estimate is dropped.
func (c *Controller) skipChunk(sess *session, i int) {
	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	if !c.isActive(sess.id) {
		return
	}
	if err := c.send(sess.ctx, protocol.KindQueueSkip, nil); err != nil {
		c.cfg.Logger.Debug("skip failed", "session", sess.id, "chunk", i, "err", err)
	}
}

func (c *Controller) fetch(ctx context.Context, base synth.Request, text string, format tts.Format) ([]byte, error) {
	req := base
	req.Text = text
	req.Format = format

	start := time.Now()
	data, err := c.cfg.Synth.Synthesize(ctx, req)
	if err != nil {
		c.cfg.Metrics.RecordChunkFailure(ctx, "synthesize")
		return nil, err
	}
	c.cfg.Metrics.RecordChunk(ctx, string(format), time.Since(start))
	return data, nil
}

// fallback switches a failed remote session to local speech. When local
// speech cannot start either, cause is returned. A session that is no
// longer active gets errSuperseded and touches nothing.
func (c *Controller) fallback(ctx context.Context, sess *session, text string, cause error) (ReadResult, error) {
	// sess stays active while the engine is switched over, so a newer
	// session's CancelSession waits for these sends
	c.appendMu.Lock()
	defer c.appendMu.Unlock()
	if !c.isActive(sess.id) {
		return ReadResult{}, errSuperseded
	}

	c.cfg.Logger.Warn("remote synthesis failed, using local speech", "err", cause)
	if err := c.send(ctx, protocol.KindStop, nil); err != nil {
		c.cfg.Logger.Debug("stop before fallback failed", "err", err)
	}
	err := c.send(ctx, protocol.KindWebSpeechStart, protocol.SpeechPayload{Text: text})

	var meta *metadata
	if err == nil {
		meta = &metadata{provider: tts.ProviderWebSpeech}
	}
	if !c.release(sess, meta) {
		return ReadResult{}, errSuperseded
	}
	if err != nil {
		c.cfg.Logger.Debug("fallback failed", "err", err)
		return ReadResult{}, cause
	}

	c.cfg.Metrics.RecordFallback(ctx)
	return ReadResult{Provider: tts.ProviderWebSpeech, Chunks: 1}, nil
}

// release ends sess if it is still the active session and replaces the
// metadata with meta, or clears it when meta is nil. It reports whether
// sess was active. Callers hold appendMu.
func (c *Controller) release(sess *session, meta *metadata) bool {
	c.mu.Lock()
	if c.active != sess {
		c.mu.Unlock()
		return false
	}
	c.active = nil
	c.meta = metadata{}
	if meta != nil {
		c.meta = *meta
	}
	handles := sess.handles
	sess.handles = make(map[int]context.CancelFunc)
	c.mu.Unlock()

	for _, cancel := range handles {
		cancel()
	}
	sess.cancel()
	return true
}

func (c *Controller) begin() *session {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:      uuid.NewString(),
		ctx:     ctx,
		cancel:  cancel,
		handles: make(map[int]context.CancelFunc),
	}

	c.mu.Lock()
	c.active = sess
	c.mu.Unlock()
	return sess
}

// track registers an abort handle for chunk i. The returned func releases
// it.
func (c *Controller) track(sess *session, i int) (context.Context, func()) {
	ctx, cancel := context.WithCancel(sess.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != sess {
		cancel()
		return ctx, func() {}
	}
	sess.handles[i] = cancel
	return ctx, func() {
		cancel()
		c.mu.Lock()
		delete(sess.handles, i)
		c.mu.Unlock()
	}
}

func (c *Controller) isActive(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.active.id == id
}

func (c *Controller) setMeta(m metadata) {
	c.mu.Lock()
	c.meta = m
	c.mu.Unlock()
}

// CancelSession invalidates the active session and aborts its fetches.
// It is safe to call when no session is active.
func (c *Controller) CancelSession() {
	c.mu.Lock()
	sess := c.active
	c.active = nil
	c.meta = metadata{}
	var handles []context.CancelFunc
	if sess != nil {
		for _, cancel := range sess.handles {
			handles = append(handles, cancel)
		}
		sess.handles = make(map[int]context.CancelFunc)
	}
	c.mu.Unlock()

	if sess == nil {
		return
	}
	for _, cancel := range handles {
		cancel()
	}
	sess.cancel()

	// wait out an append that passed its active check before the cancel
	c.appendMu.Lock()
	c.appendMu.Unlock() //nolint:staticcheck

	c.cfg.Logger.Debug("session cancelled", "session", sess.id)
}

// Pause pauses playback.
func (c *Controller) Pause(ctx context.Context) error {
	return c.send(ctx, protocol.KindPause, nil)
}

// Resume resumes playback.
func (c *Controller) Resume(ctx context.Context) error {
	return c.send(ctx, protocol.KindResume, nil)
}

// Stop cancels the session and stops playback.
func (c *Controller) Stop(ctx context.Context) error {
	c.CancelSession()
	return c.send(ctx, protocol.KindStop, nil)
}

// Status returns the engine's status with the session's voice, model and
// provider.
func (c *Controller) Status(ctx context.Context) (protocol.Response, error) {
	resp, err := c.cfg.Host.Send(ctx, protocol.MustRequest(protocol.KindGetStatus, nil))
	if err != nil {
		return protocol.Response{}, err
	}
	if err := resp.Err(); err != nil {
		return protocol.Response{}, err
	}

	c.mu.Lock()
	meta := c.meta
	c.mu.Unlock()

	resp.Voice = meta.voice
	resp.Model = meta.model
	resp.ProviderUsed = meta.provider.String()
	c.cfg.Metrics.RecordQueueLength(ctx, resp.QueueLength)
	return resp, nil
}

// Close cancels the session and waits for background work to finish.
func (c *Controller) Close() error {
	c.CancelSession()
	c.wg.Wait()
	return nil
}

func (c *Controller) send(ctx context.Context, kind protocol.Kind, payload interface{}) error {
	req, err := protocol.NewRequest(kind, payload)
	if err != nil {
		return err
	}
	resp, err := c.cfg.Host.Send(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}
