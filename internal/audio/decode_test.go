package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// makeWAV builds a 16-bit PCM WAV file.
func makeWAV(samples []int16, rate, channels int) []byte {
	var buf bytes.Buffer
	dataLen := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	samples := make([]int16, 2400) // 100ms of 24kHz mono
	for i := range samples {
		samples[i] = int16(i)
	}

	pcm, err := Decode(makeWAV(samples, 24000, 1), "audio/wav")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if pcm.SampleRate != 24000 || pcm.Channels != 1 {
		t.Errorf("unexpected format: %d Hz, %d channels", pcm.SampleRate, pcm.Channels)
	}
	if len(pcm.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(pcm.Samples))
	}
	if pcm.Samples[100] != 100 {
		t.Errorf("sample 100 = %d, want 100", pcm.Samples[100])
	}
	if pcm.Duration() != 100*time.Millisecond {
		t.Errorf("Duration() = %v, want 100ms", pcm.Duration())
	}
}

func TestProbeWAV(t *testing.T) {
	data := makeWAV(make([]int16, 48000), 24000, 1)

	d, err := Probe(data, "audio/wav")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if d != 2*time.Second {
		t.Errorf("Probe() = %v, want 2s", d)
	}

	if d, err := (Prober{}).Probe(data, "audio/wav"); err != nil || d != 2*time.Second {
		t.Errorf("Prober.Probe() = %v, %v", d, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil, "audio/wav"); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := Decode([]byte("not a wav file at all"), "audio/wav"); !errors.Is(err, tts.ErrUnsupportedFormat) {
		t.Errorf("expected format error for invalid WAV, got %v", err)
	}
	if _, err := Decode([]byte("x"), "audio/ogg"); !errors.Is(err, tts.ErrUnsupportedFormat) {
		t.Errorf("expected format error for ogg, got %v", err)
	}
	if _, err := Probe([]byte("garbage"), "audio/mpeg"); err == nil {
		t.Error("expected error probing garbage MP3")
	}
}

func TestConvert(t *testing.T) {
	mono := PCM{Samples: []int16{0, 100, 200, 300}, SampleRate: 24000, Channels: 1}

	out := Convert(mono, 48000, 2)
	if out.SampleRate != 48000 || out.Channels != 2 {
		t.Fatalf("unexpected format: %d Hz, %d channels", out.SampleRate, out.Channels)
	}
	if out.Frames() != 8 {
		t.Fatalf("expected 8 frames, got %d", out.Frames())
	}
	// frame 1 interpolates halfway between samples 0 and 1
	if out.Samples[2] != 50 || out.Samples[3] != 50 {
		t.Errorf("unexpected interpolated frame: %v", out.Samples[2:4])
	}
	if out.Duration() != mono.Duration() {
		t.Errorf("conversion changed duration: %v vs %v", out.Duration(), mono.Duration())
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := PCM{Samples: []int16{100, 300, -32768, -32768}, SampleRate: 48000, Channels: 2}
	mono := StereoToMono(stereo)
	if len(mono.Samples) != 2 || mono.Samples[0] != 200 || mono.Samples[1] != -32768 {
		t.Errorf("StereoToMono() = %v", mono.Samples)
	}
}

func TestPCMBytes(t *testing.T) {
	p := PCM{Samples: []int16{1, -2}}
	want := []byte{0x01, 0x00, 0xfe, 0xff}
	if got := p.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %v, want %v", got, want)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(DefaultDeviceConfig()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := validateConfig(DeviceConfig{SampleRate: 22050, Channels: 2}); err == nil {
		t.Error("expected error for unsupported sample rate")
	}
	if err := validateConfig(DeviceConfig{SampleRate: 48000, Channels: 3}); err == nil {
		t.Error("expected error for 3 channels")
	}
}
