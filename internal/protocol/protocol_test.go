package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestRequestWireFormat(t *testing.T) {
	req := MustRequest(KindQueueSetExpected, ExpectedPayload{ExpectedCount: 5, TotalEstimateSec: 120})
	req.Target = TargetEngine

	data, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if raw["type"] != "queue_set_expected" {
		t.Errorf("type = %v", raw["type"])
	}
	payload, ok := raw["payload"].(map[string]interface{})
	if !ok {
		t.Fatalf("payload missing: %s", data)
	}
	if payload["expectedCount"] != float64(5) || payload["totalEstimateSec"] != float64(120) {
		t.Errorf("unexpected payload: %v", payload)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, err := DecodePayload[ExpectedPayload](decoded)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if got.ExpectedCount != 5 || got.TotalEstimateSec != 120 {
		t.Errorf("DecodePayload() = %+v", got)
	}
}

func TestDecodeRejectsUntyped(t *testing.T) {
	if _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Error("expected error for request without type")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed request")
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	got, err := DecodePayload[SpeechPayload](Request{Type: KindWebSpeechStart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "" {
		t.Errorf("expected zero payload, got %+v", got)
	}
}

func TestStatusResponseFields(t *testing.T) {
	data, err := EncodeResponse(Response{OK: true, Provider: "audio", QueueLength: 2, ElapsedSec: 1.5, TotalSec: 9, ProviderUsed: "openai"})
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	for _, field := range []string{`"ok":true`, `"queueLength":2`, `"elapsedSec":1.5`, `"totalSec":9`, `"providerUsed":"openai"`, `"playing":false`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("encoded response missing %s: %s", field, data)
		}
	}
}

func TestFailure(t *testing.T) {
	resp := Failure(errors.New("boom"))
	if resp.OK || resp.Error != "boom" {
		t.Errorf("Failure() = %+v", resp)
	}
	if err := resp.Err(); err == nil || err.Error() != "boom" {
		t.Errorf("Err() = %v", err)
	}
	if err := OK().Err(); err != nil {
		t.Errorf("OK().Err() = %v", err)
	}
}

func TestHandlerFunc(t *testing.T) {
	var h Handler = HandlerFunc(func(ctx context.Context, req Request) Response {
		if req.Type != KindPing {
			return Failure(errors.New("unexpected"))
		}
		return OK()
	})
	if resp := h.Handle(context.Background(), Request{Type: KindPing}); !resp.OK {
		t.Errorf("Handle() = %+v", resp)
	}
}
