package tts

import (
	"errors"
	"fmt"
)

// Common read-aloud errors
var (
	// ErrNoTarget indicates there is no page, file or selection to read
	ErrNoTarget = errors.New("no page to read - pass a URL, a file, - for stdin, or --clipboard")

	// ErrNoText indicates extraction produced no readable text
	ErrNoText = errors.New("could not extract text from page")

	// ErrMissingAPIKey indicates the remote provider has no credential configured
	ErrMissingAPIKey = errors.New("OpenAI API key is not set - run: readaloud settings set openaiApiKey <key>")

	// ErrTransport indicates the synthesis request failed on the wire
	ErrTransport = errors.New("speech synthesis request failed")

	// ErrHostTimeout indicates the playback engine did not answer in time
	ErrHostTimeout = errors.New("playback engine did not become ready")

	// ErrInvalidProvider indicates an unknown provider was requested
	ErrInvalidProvider = errors.New("invalid provider - use openai or webspeech")

	// ErrAudioDeviceUnavailable indicates audio device cannot be accessed
	ErrAudioDeviceUnavailable = errors.New("audio device unavailable")

	// ErrUnsupportedFormat indicates a MIME type the player cannot decode
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// TTSError represents a read-aloud error with additional context
type TTSError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Input errors
	ErrorCodeNoTarget          ErrorCode = "NO_TARGET"
	ErrorCodeExtraction        ErrorCode = "EXTRACTION_FAILED"
	ErrorCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorCodeMissingCredential ErrorCode = "MISSING_CREDENTIAL"

	// Synthesis errors
	ErrorCodeTransport ErrorCode = "TRANSPORT"

	// Hosting errors
	ErrorCodeHostTimeout ErrorCode = "HOST_TIMEOUT"

	// Audio errors
	ErrorCodeAudioDevice ErrorCode = "AUDIO_DEVICE"
	ErrorCodeAudioFormat ErrorCode = "AUDIO_FORMAT"

	// System errors
	ErrorCodeTimeout  ErrorCode = "TIMEOUT"
	ErrorCodeCanceled ErrorCode = "CANCELED"
)

// NewTTSError creates a new error with context
func NewTTSError(code ErrorCode, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *TTSError) WithContext(key string, value interface{}) *TTSError {
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the operation can be retried
func (e *TTSError) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeTimeout,
		ErrorCodeHostTimeout,
		ErrorCodeTransport:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is, or wraps, a retryable TTSError.
func IsRetryable(err error) bool {
	var e *TTSError
	return errors.As(err, &e) && e.IsRetryable()
}

// Is lets errors.Is match a TTSError against the sentinel of its code.
func (e *TTSError) Is(target error) bool {
	switch e.Code {
	case ErrorCodeNoTarget:
		return target == ErrNoTarget
	case ErrorCodeExtraction:
		return target == ErrNoText
	case ErrorCodeMissingCredential:
		return target == ErrMissingAPIKey
	case ErrorCodeTransport:
		return target == ErrTransport
	case ErrorCodeHostTimeout:
		return target == ErrHostTimeout
	case ErrorCodeAudioDevice:
		return target == ErrAudioDeviceUnavailable
	case ErrorCodeAudioFormat:
		return target == ErrUnsupportedFormat
	case ErrorCodeInvalidInput:
		return target == ErrInvalidProvider
	}
	return false
}
