// Package synth turns text into encoded speech through a remote service.
package synth

import (
	"context"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// Request describes one synthesis call.
type Request struct {
	APIKey string
	Model  string
	Voice  string
	Text   string
	Format tts.Format
}

// Synthesizer produces encoded audio for a request.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// Func adapts a function to Synthesizer.
type Func func(ctx context.Context, req Request) ([]byte, error)

// Synthesize calls f.
func (f Func) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	return f(ctx, req)
}
