// Package host starts the playback engine on demand and makes sure it
// answers before anything is sent to it.
package host

import (
	"context"
	"time"

	"github.com/charmbracelet/readaloud/internal/tts"
)

// Readiness defaults.
const (
	DefaultReadyInterval = 100 * time.Millisecond
	DefaultReadyTimeout  = 4 * time.Second
)

// WaitReady calls ping every interval until it succeeds. It gives up with a
// host timeout error once ceiling has elapsed, or returns the context error
// when ctx ends first.
func WaitReady(ctx context.Context, ping func(context.Context) error, interval, ceiling time.Duration) error {
	if interval <= 0 {
		interval = DefaultReadyInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultReadyTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for attempt := 1; ; attempt++ {
		if last = ping(waitCtx); last == nil {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return tts.NewTTSError(tts.ErrorCodeHostTimeout, "playback engine did not answer", last).
				WithContext("attempts", attempt).
				WithContext("waited", ceiling)
		case <-ticker.C:
		}
	}
}
