package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/charmbracelet/readaloud/internal/chunk"
	"github.com/charmbracelet/readaloud/internal/queue"
	"github.com/charmbracelet/readaloud/internal/speech"
	"github.com/charmbracelet/readaloud/internal/tts"
)

// ErrSpeechUnavailable is returned when local speech is requested but the
// engine has no speech synthesizer.
var ErrSpeechUnavailable = errors.New("local speech engine not available")

// DefaultTickInterval is how often local-speech progress is sampled.
const DefaultTickInterval = 500 * time.Millisecond

// Device is an audio output that plays one track at a time. Callbacks must
// not be invoked while the caller of Play is still inside Play.
type Device interface {
	Play(data []byte, mime string, onMetadata func(time.Duration), onEnded func()) error
	Pause()
	Resume() error
	Stop()
	Position() time.Duration
}

// Prober measures the duration of an encoded buffer.
type Prober interface {
	Probe(data []byte, mime string) (time.Duration, error)
}

// Config configures an Engine.
type Config struct {
	Device       Device
	Prober       Prober
	Speech       speech.Engine
	Logger       *log.Logger
	TickInterval time.Duration
	MemoryLimit  int64 // bytes of queued audio, 0 for unlimited
}

// Status is the engine's view of playback.
type Status struct {
	Playing     bool
	Paused      bool
	Provider    tts.Mode
	QueueLength int
	ElapsedSec  float64
	TotalSec    float64
}

// Stats counts items by outcome.
type Stats struct {
	Appended int64
	Played   int64
	Skipped  int64
	Finished int64

	Queue queue.Stats
}

// Engine plays queued audio items in order, or chains local speech units.
type Engine struct {
	device       Device
	prober       Prober
	speech       speech.Engine
	logger       *log.Logger
	tickInterval time.Duration
	newTicker    func(time.Duration) (<-chan time.Time, func())

	mu           sync.Mutex
	queue        *queue.AudioQueue
	playing      bool // an item is loaded in the device
	paused       bool // explicit pause in audio mode
	useWebSpeech bool
	utterances   []string
	timing       timing
	seq          int
	stats        Stats

	// gen invalidates callbacks from before the last reset; trackID
	// invalidates callbacks from tracks that are no longer loaded.
	gen     uint64
	trackID uint64

	stopTick func()
}

// NewEngine creates an idle engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Engine{
		device:       cfg.Device,
		prober:       cfg.Prober,
		speech:       cfg.Speech,
		logger:       cfg.Logger,
		tickInterval: cfg.TickInterval,
		newTicker:    realTicker,
		queue:        queue.NewAudioQueue(cfg.MemoryLimit),
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Reset stops playback and speech and clears the queue and all timing.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.stopAllLocked()
	e.queue.Clear()
	e.playing = false
	e.paused = false
	e.useWebSpeech = false
	e.utterances = nil
	e.timing = timing{}
	e.seq = 0
	e.gen++
}

func (e *Engine) stopAllLocked() {
	if e.device != nil {
		e.device.Stop()
	}
	if e.speech != nil {
		e.speech.Cancel()
	}
	if e.stopTick != nil {
		e.stopTick()
		e.stopTick = nil
	}
	e.playing = false
}

// Stop is Reset.
func (e *Engine) Stop() {
	e.Reset()
}

// SetExpected seeds the total-time estimate for count upcoming items.
func (e *Engine) SetExpected(count int, estimateSec float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timing.setExpected(count, estimateSec)
}

// Skip records that one expected item will never arrive.
func (e *Engine) Skip() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.timing.skip()
}

// AppendAudio queues an encoded buffer. Playback starts right away when the
// engine is idle. The buffer's duration is probed in the background.
func (e *Engine) AppendAudio(data []byte, mime string) error {
	e.mu.Lock()
	item := queue.Item{Seq: e.seq, Data: data, MIME: mime}
	if err := e.queue.Enqueue(item); err != nil {
		e.mu.Unlock()
		return err
	}
	e.seq++
	e.stats.Appended++
	gen := e.gen
	if !e.playing {
		e.playNextLocked()
	}
	e.mu.Unlock()

	if e.prober != nil {
		go e.probe(gen, data, mime)
	}
	return nil
}

func (e *Engine) probe(gen uint64, data []byte, mime string) {
	d, err := e.prober.Probe(data, mime)
	if err != nil || d <= 0 {
		e.logger.Debug("duration probe failed", "mime", mime, "err", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		return
	}
	e.timing.addProbed(d.Seconds())
}

// Play starts the head item if nothing is playing.
func (e *Engine) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.playNextLocked()
}

// playNextLocked loads the head item. Items that fail to start are skipped.
func (e *Engine) playNextLocked() {
	if e.useWebSpeech || e.playing || e.paused || e.device == nil {
		return
	}

	for {
		item, err := e.queue.TryDequeue()
		if err != nil {
			return
		}

		e.trackID++
		gen, id := e.gen, e.trackID
		err = e.device.Play(item.Data, item.MIME,
			func(d time.Duration) { e.onMetadata(gen, id, d) },
			func() { e.onEnded(gen, id) },
		)
		if err != nil {
			e.stats.Skipped++
			e.logger.Warn("audio play error, skipping item", "seq", item.Seq, "mime", item.MIME, "err", err)
			continue
		}

		e.stats.Played++
		e.playing = true
		e.timing.currentTrackSec = 0
		return
	}
}

func (e *Engine) onMetadata(gen, id uint64, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || id != e.trackID || d <= 0 {
		return
	}
	e.timing.trackLoaded(d.Seconds())
}

func (e *Engine) onEnded(gen, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || id != e.trackID {
		return
	}
	e.playing = false
	e.stats.Finished++
	e.timing.trackFinished()
	e.playNextLocked()
}

// Pause suspends output without touching the queue.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.useWebSpeech {
		if e.speech != nil && e.speech.Speaking() && !e.speech.Paused() {
			e.speech.Pause()
		}
		return
	}

	e.paused = true
	if e.playing {
		e.device.Pause()
	}
}

// Resume continues from where Pause left off.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.useWebSpeech {
		if e.speech != nil && e.speech.Paused() {
			e.speech.Resume()
		}
		return nil
	}

	if !e.paused {
		return nil
	}
	e.paused = false
	if e.playing {
		if err := e.device.Resume(); err != nil {
			return err
		}
		return nil
	}
	e.playNextLocked()
	return nil
}

// WebSpeechStart resets the engine and speaks text sentence by sentence on
// the local speech engine.
func (e *Engine) WebSpeechStart(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	e.useWebSpeech = true
	if e.speech == nil {
		e.logger.Warn("local speech not available")
		return ErrSpeechUnavailable
	}

	e.timing.estimateSec = chunk.EstimateSeconds(chunk.WordCount(text))
	e.utterances = chunk.Sentences(text)

	gen := e.gen
	ticks, stop := e.newTicker(e.tickInterval)
	done := make(chan struct{})
	e.stopTick = func() {
		stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticks:
				e.tick(gen)
			}
		}
	}()

	e.speakLocked(gen, 0)
	return nil
}

// speakLocked speaks utterance i, chaining the next one to its end.
func (e *Engine) speakLocked(gen uint64, i int) {
	for ; i < len(e.utterances); i++ {
		next := i + 1
		err := e.speech.Speak(e.utterances[i], func() { e.onUtteranceEnd(gen, next) })
		if err == nil {
			return
		}
		e.logger.Warn("speech error, skipping sentence", "index", i, "err", err)
	}
}

func (e *Engine) onUtteranceEnd(gen uint64, next int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || !e.useWebSpeech {
		return
	}
	e.speakLocked(gen, next)
}

// tick advances local-speech elapsed time while speech is audible.
func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || !e.useWebSpeech || e.speech == nil {
		return
	}
	if e.speech.Speaking() && !e.speech.Paused() {
		e.timing.consumedSec += e.tickInterval.Seconds()
	}
}

// Status reports playback state and timing.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Provider:    tts.ModeAudio,
		QueueLength: e.queue.Size(),
	}

	if e.useWebSpeech {
		s.Provider = tts.ModeWebSpeech
		if e.speech != nil {
			s.Playing = e.speech.Speaking()
			s.Paused = e.speech.Paused()
		}
		s.ElapsedSec, s.TotalSec = e.timing.report(0)
		return s
	}

	s.Paused = e.paused
	s.Playing = e.playing && !e.paused
	var position float64
	if e.playing && e.device != nil {
		position = e.device.Position().Seconds()
	}
	s.ElapsedSec, s.TotalSec = e.timing.report(position)
	return s
}

// Stats returns item counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats
	s.Queue = e.queue.GetStats()
	return s
}

// Close stops everything and releases the queue.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resetLocked()
	return e.queue.Close()
}
