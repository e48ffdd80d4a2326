package tts

import (
	"errors"
	"fmt"
	"testing"
)

func TestTTSErrorMatchesSentinel(t *testing.T) {
	err := NewTTSError(ErrorCodeTransport, "OpenAI TTS error 500", nil)
	wrapped := fmt.Errorf("chunk 3: %w", err)

	if !errors.Is(wrapped, ErrTransport) {
		t.Error("expected wrapped transport error to match ErrTransport")
	}
	if errors.Is(wrapped, ErrHostTimeout) {
		t.Error("transport error should not match ErrHostTimeout")
	}

	var ttsErr *TTSError
	if !errors.As(wrapped, &ttsErr) {
		t.Fatal("errors.As failed")
	}
	if !ttsErr.IsRetryable() {
		t.Error("transport errors should be retryable")
	}
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable should see through wrapping")
	}
}

func TestTTSErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewTTSError(ErrorCodeHostTimeout, "engine ping", cause).WithContext("attempts", 40)

	want := "HOST_TIMEOUT: engine ping: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Context["attempts"] != 40 {
		t.Errorf("context not recorded: %v", err.Context)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", NewTTSError(ErrorCodeTransport, "reset", nil), true},
		{"timeout", NewTTSError(ErrorCodeTimeout, "slow", nil), true},
		{"host timeout", NewTTSError(ErrorCodeHostTimeout, "no answer", nil), true},
		{"missing credential", NewTTSError(ErrorCodeMissingCredential, "no key", nil), false},
		{"invalid input", NewTTSError(ErrorCodeInvalidInput, "bad payload", nil), false},
		{"canceled", NewTTSError(ErrorCodeCanceled, "stop", nil), false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
