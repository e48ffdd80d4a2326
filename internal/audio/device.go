//go:build !nocgo

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// Compiled reports whether this build includes audio output.
const Compiled = true

var (
	sharedContext     *oto.Context
	sharedContextErr  error
	sharedContextOnce sync.Once
	sharedRate        int
	sharedChannels    int
)

// getContext returns the process-wide oto context. oto allows one context
// per process, so the first configuration wins.
func getContext(config DeviceConfig) (*oto.Context, error) {
	sharedContextOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   config.SampleRate,
			ChannelCount: config.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   config.BufferSize,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			sharedContextErr = tts.NewTTSError(tts.ErrorCodeAudioDevice, "failed to create oto context", err)
			return
		}
		<-ready
		sharedContext = ctx
		sharedRate = config.SampleRate
		sharedChannels = config.Channels
	})
	return sharedContext, sharedContextErr
}

// Available reports whether an output device can be opened.
func Available() bool {
	_, err := getContext(DefaultDeviceConfig())
	return err == nil
}

// Device plays one decoded track at a time on the system output.
type Device struct {
	context    *oto.Context
	sampleRate int
	channels   int
	logger     *log.Logger

	mu    sync.Mutex
	track *track
}

// track is the currently loaded audio. data must stay referenced while oto
// reads from it.
type track struct {
	player   *oto.Player
	data     []byte
	duration time.Duration

	startTime  time.Time
	pauseStart time.Time
	pausedAt   time.Duration
	totalPause time.Duration
	paused     bool

	done chan struct{}
}

// NewDevice opens the output device.
func NewDevice(config DeviceConfig, logger *log.Logger) (*Device, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ctx, err := getContext(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Device{
		context:    ctx,
		sampleRate: sharedRate,
		channels:   sharedChannels,
		logger:     logger,
	}, nil
}

// Play decodes data and starts playing it, replacing any current track.
// onMetadata receives the track duration once decoded; onEnded runs when the
// track drains. Both run on their own goroutines and are never called for a
// track that was stopped or replaced.
func (d *Device) Play(data []byte, mime string, onMetadata func(time.Duration), onEnded func()) error {
	pcm, err := Decode(data, mime)
	if err != nil {
		return err
	}
	pcm = Convert(pcm, d.sampleRate, d.channels)
	if len(pcm.Samples) == 0 {
		return errors.New("decoded audio is empty")
	}

	raw := pcm.Bytes()
	t := &track{
		data:     raw,
		duration: pcm.Duration(),
		done:     make(chan struct{}),
	}

	d.mu.Lock()
	d.stopLocked()
	t.player = d.context.NewPlayer(bytes.NewReader(t.data))
	t.player.Play()
	t.startTime = time.Now()
	d.track = t
	d.mu.Unlock()

	if onMetadata != nil {
		go onMetadata(t.duration)
	}
	go d.watch(t, onEnded)

	return nil
}

// watch waits for t to drain and reports its end.
func (d *Device) watch(t *track, onEnded func()) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}

		d.mu.Lock()
		if d.track != t {
			d.mu.Unlock()
			return
		}
		if t.paused || t.player.IsPlaying() {
			d.mu.Unlock()
			continue
		}
		if err := t.player.Err(); err != nil {
			d.logger.Debug("audio player error", "err", err)
		}
		d.track = nil
		t.close()
		d.mu.Unlock()

		if onEnded != nil {
			onEnded()
		}
		return
	}
}

// Pause suspends the current track.
func (d *Device) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.track
	if t == nil || t.paused {
		return
	}
	t.player.Pause()
	t.pausedAt = t.position()
	t.pauseStart = time.Now()
	t.paused = true
}

// Resume continues a paused track.
func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.track
	if t == nil {
		return errors.New("cannot resume: no track loaded")
	}
	if !t.paused {
		return nil
	}
	t.player.Play()
	t.totalPause += time.Since(t.pauseStart)
	t.paused = false
	return nil
}

// Stop unloads the current track without firing its end callback.
func (d *Device) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
}

func (d *Device) stopLocked() {
	if d.track == nil {
		return
	}
	d.track.close()
	d.track = nil
}

// Position returns how far into the current track playback is.
func (d *Device) Position() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.track == nil {
		return 0
	}
	return d.track.position()
}

// Paused reports whether a loaded track is paused.
func (d *Device) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.track != nil && d.track.paused
}

// Close stops playback. The oto context lives for the rest of the process.
func (d *Device) Close() error {
	d.Stop()
	return nil
}

func (t *track) position() time.Duration {
	if t.paused {
		return t.pausedAt
	}
	elapsed := time.Since(t.startTime) - t.totalPause
	if elapsed > t.duration {
		elapsed = t.duration
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

func (t *track) close() {
	select {
	case <-t.done:
		return
	default:
	}
	close(t.done)
	t.player.Pause()
	if err := t.player.Close(); err != nil {
		log.Debug("closing audio player", "err", err)
	}
	t.data = nil
}
