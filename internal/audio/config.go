package audio

import (
	"fmt"
	"time"
)

// DeviceConfig contains configuration for the output device.
type DeviceConfig struct {
	SampleRate int           // 24000, 44100 or 48000 Hz
	Channels   int           // 1 = mono, 2 = stereo
	BufferSize time.Duration // Device buffer length
}

// DefaultDeviceConfig returns the default output configuration.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SampleRate: 24000,
		Channels:   2,
		BufferSize: 100 * time.Millisecond,
	}
}

// validateConfig validates the device configuration.
func validateConfig(config DeviceConfig) error {
	switch config.SampleRate {
	case 24000, 44100, 48000:
	default:
		return fmt.Errorf("sample rate must be 24000, 44100 or 48000 Hz, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BufferSize < 0 {
		return fmt.Errorf("buffer size must not be negative")
	}

	return nil
}
