// Package protocol defines the request/response messages exchanged between
// the client, the session controller and the playback engine.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
)

// Kind tags a request.
type Kind string

// Public requests, served by the session controller.
const (
	KindReadCurrentPage Kind = "read_current_page"
	KindPause           Kind = "pause"
	KindResume          Kind = "resume"
	KindStop            Kind = "stop"
	KindGetStatus       Kind = "get_status"
)

// Internal queue requests, served by the playback engine.
const (
	KindQueueReset       Kind = "queue_reset"
	KindQueueSetExpected Kind = "queue_set_expected"
	KindQueueAppendAudio Kind = "queue_append_audio"
	KindQueueSkip        Kind = "queue_skip"
	KindQueuePlay        Kind = "queue_play"
	KindWebSpeechStart   Kind = "webspeech_start"
	KindPing             Kind = "ping"
)

// TargetEngine marks requests addressed to the playback engine.
const TargetEngine = "offscreen"

// Request is a tagged union: Type selects how Payload is decoded.
type Request struct {
	Type    Kind            `json:"type"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ReadPayload accompanies read_current_page.
type ReadPayload struct {
	Provider  string `json:"provider,omitempty"`
	Voice     string `json:"openaiVoice,omitempty"`
	Source    string `json:"source,omitempty"`
	Selection string `json:"selection,omitempty"`
}

// ExpectedPayload accompanies queue_set_expected.
type ExpectedPayload struct {
	ExpectedCount    int     `json:"expectedCount"`
	TotalEstimateSec float64 `json:"totalEstimateSec"`
}

// AudioPayload accompanies queue_append_audio.
type AudioPayload struct {
	Buffer []byte `json:"buffer"`
	MIME   string `json:"mime"`
}

// SpeechPayload accompanies webspeech_start.
type SpeechPayload struct {
	Text string `json:"text"`
}

// Response is shared by every request kind; unused fields stay zero.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	// read_current_page
	Provider string `json:"provider,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`

	// get_status
	Playing      bool    `json:"playing"`
	Paused       bool    `json:"paused"`
	QueueLength  int     `json:"queueLength"`
	ElapsedSec   float64 `json:"elapsedSec"`
	TotalSec     float64 `json:"totalSec"`
	Voice        string  `json:"voice,omitempty"`
	Model        string  `json:"model,omitempty"`
	ProviderUsed string  `json:"providerUsed,omitempty"`
}

// Handler answers a request. Implementations report failures inside the
// response rather than panicking or blocking past ctx.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// NewRequest builds a request, encoding payload when it is non-nil.
func NewRequest(kind Kind, payload interface{}) (Request, error) {
	req := Request{Type: kind}
	if payload == nil {
		return req, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	req.Payload = raw
	return req, nil
}

// MustRequest is NewRequest for payloads that always encode.
func MustRequest(kind Kind, payload interface{}) Request {
	req, err := NewRequest(kind, payload)
	if err != nil {
		panic(err)
	}
	return req
}

// DecodePayload decodes the payload of req into T. A missing payload decodes
// to the zero value.
func DecodePayload[T any](req Request) (T, error) {
	var v T
	if len(req.Payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(req.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", req.Type, err)
	}
	return v, nil
}

// OK is the bare success response.
func OK() Response {
	return Response{OK: true}
}

// Failure converts err into a failed response.
func Failure(err error) Response {
	if err == nil {
		return Response{OK: false, Error: "unknown error"}
	}
	return Response{OK: false, Error: err.Error()}
}

// Err returns the response's failure as an error, or nil when OK.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error == "" {
		return fmt.Errorf("request failed")
	}
	return fmt.Errorf("%s", r.Error)
}

// Encode serializes a request for the wire.
func Encode(req Request) ([]byte, error) {
	return json.Marshal(req)
}

// Decode parses a wire request.
func Decode(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if req.Type == "" {
		return Request{}, fmt.Errorf("decode request: missing type")
	}
	return req, nil
}

// EncodeResponse serializes a response for the wire.
func EncodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeResponse parses a wire response.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
