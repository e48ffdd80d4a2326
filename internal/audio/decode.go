package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// PCM is decoded audio: interleaved signed 16-bit samples.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames.
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the playing time of the samples.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

// Bytes encodes the samples as little-endian bytes.
func (p PCM) Bytes() []byte {
	out := make([]byte, len(p.Samples)*2)
	for i, s := range p.Samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// isWAV reports whether mime names a WAV container.
func isWAV(mime string) bool {
	switch strings.ToLower(mime) {
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return true
	}
	return false
}

// isMP3 reports whether mime names an MP3 stream.
func isMP3(mime string) bool {
	switch strings.ToLower(mime) {
	case "audio/mpeg", "audio/mp3", "":
		return true
	}
	return false
}

// Decode converts an encoded buffer to PCM. An empty MIME type is treated as
// MP3, the default of the synthesis API.
func Decode(data []byte, mime string) (PCM, error) {
	if len(data) == 0 {
		return PCM{}, errors.New("audio data is empty")
	}
	switch {
	case isWAV(mime):
		return decodeWAV(data)
	case isMP3(mime):
		return decodeMP3(data)
	default:
		return PCM{}, tts.NewTTSError(tts.ErrorCodeAudioFormat, fmt.Sprintf("cannot decode %q", mime), nil)
	}
}

func decodeWAV(data []byte) (PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return PCM{}, tts.NewTTSError(tts.ErrorCodeAudioFormat, "invalid WAV data", d.Err())
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decode WAV: %w", err)
	}

	shift := buf.SourceBitDepth - 16
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case buf.SourceBitDepth == 8:
			// 8-bit WAV is unsigned
			samples[i] = int16((v - 128) << 8)
		case shift > 0:
			samples[i] = int16(v >> shift)
		default:
			samples[i] = int16(v)
		}
	}

	return PCM{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

func decodeMP3(data []byte) (PCM, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return PCM{}, tts.NewTTSError(tts.ErrorCodeAudioFormat, "invalid MP3 data", err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return PCM{}, fmt.Errorf("decode MP3: %w", err)
	}

	// go-mp3 always yields 16-bit stereo
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[i*2]) | int16(raw[i*2+1])<<8
	}

	return PCM{
		Samples:    samples,
		SampleRate: d.SampleRate(),
		Channels:   2,
	}, nil
}

// Probe returns the playing time of an encoded buffer.
func Probe(data []byte, mime string) (time.Duration, error) {
	if isMP3(mime) && len(data) > 0 {
		d, err := mp3.NewDecoder(bytes.NewReader(data))
		if err != nil {
			return 0, tts.NewTTSError(tts.ErrorCodeAudioFormat, "invalid MP3 data", err)
		}
		if n := d.Length(); n > 0 && d.SampleRate() > 0 {
			frames := n / 4
			return time.Duration(frames) * time.Second / time.Duration(d.SampleRate()), nil
		}
	}

	pcm, err := Decode(data, mime)
	if err != nil {
		return 0, err
	}
	return pcm.Duration(), nil
}

// Prober adapts Probe to the playback engine.
type Prober struct{}

// Probe implements the engine's duration probe.
func (Prober) Probe(data []byte, mime string) (time.Duration, error) {
	return Probe(data, mime)
}
