//go:build nocgo

package audio

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// Compiled reports whether this build includes audio output.
const Compiled = false

// Available always reports false in nocgo builds.
func Available() bool {
	return false
}

// Device is a stub for builds without CGO.
type Device struct{}

// NewDevice fails in nocgo builds.
func NewDevice(config DeviceConfig, logger *log.Logger) (*Device, error) {
	return nil, tts.NewTTSError(tts.ErrorCodeAudioDevice, "audio not available in nocgo build", nil)
}

func (d *Device) Play(data []byte, mime string, onMetadata func(time.Duration), onEnded func()) error {
	return tts.ErrAudioDeviceUnavailable
}

func (d *Device) Pause()                  {}
func (d *Device) Resume() error           { return tts.ErrAudioDeviceUnavailable }
func (d *Device) Stop()                   {}
func (d *Device) Position() time.Duration { return 0 }
func (d *Device) Paused() bool            { return false }
func (d *Device) Close() error            { return nil }
