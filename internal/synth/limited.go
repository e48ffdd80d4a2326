package synth

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limited spaces requests to the wrapped synthesizer.
type Limited struct {
	next    Synthesizer
	limiter *rate.Limiter
}

// NewLimited allows perMinute requests per minute with the given burst.
// A non-positive rate returns next unchanged.
func NewLimited(next Synthesizer, perMinute, burst int) Synthesizer {
	if perMinute <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

// Synthesize waits for a token, then calls the wrapped synthesizer.
func (l *Limited) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.Synthesize(ctx, req)
}
