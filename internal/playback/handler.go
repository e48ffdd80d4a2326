package playback

import (
	"context"
	"fmt"

	"github.com/charmbracelet/readaloud/internal/protocol"
)

// Handle serves the internal queue protocol. Requests addressed to another
// target are rejected.
func (e *Engine) Handle(_ context.Context, req protocol.Request) protocol.Response {
	if req.Target != "" && req.Target != protocol.TargetEngine {
		return protocol.Failure(fmt.Errorf("request for %q is not addressed to the playback engine", req.Target))
	}

	switch req.Type {
	case protocol.KindPing:
		return protocol.OK()

	case protocol.KindQueueReset, protocol.KindStop:
		e.Reset()
		return protocol.OK()

	case protocol.KindQueueSetExpected:
		p, err := protocol.DecodePayload[protocol.ExpectedPayload](req)
		if err != nil {
			return protocol.Failure(err)
		}
		e.SetExpected(p.ExpectedCount, p.TotalEstimateSec)
		return protocol.OK()

	case protocol.KindQueueSkip:
		e.Skip()
		return protocol.OK()

	case protocol.KindQueueAppendAudio:
		p, err := protocol.DecodePayload[protocol.AudioPayload](req)
		if err != nil {
			return protocol.Failure(err)
		}
		if len(p.Buffer) == 0 {
			return protocol.Failure(fmt.Errorf("empty audio buffer"))
		}
		if err := e.AppendAudio(p.Buffer, p.MIME); err != nil {
			return protocol.Failure(err)
		}
		return protocol.OK()

	case protocol.KindQueuePlay:
		e.Play()
		return protocol.OK()

	case protocol.KindPause:
		e.Pause()
		return protocol.OK()

	case protocol.KindResume:
		if err := e.Resume(); err != nil {
			return protocol.Failure(err)
		}
		return protocol.OK()

	case protocol.KindWebSpeechStart:
		p, err := protocol.DecodePayload[protocol.SpeechPayload](req)
		if err != nil {
			return protocol.Failure(err)
		}
		if err := e.WebSpeechStart(p.Text); err != nil {
			return protocol.Failure(err)
		}
		return protocol.OK()

	case protocol.KindGetStatus:
		s := e.Status()
		return protocol.Response{
			OK:          true,
			Provider:    string(s.Provider),
			Playing:     s.Playing,
			Paused:      s.Paused,
			QueueLength: s.QueueLength,
			ElapsedSec:  s.ElapsedSec,
			TotalSec:    s.TotalSec,
		}
	}

	return protocol.Failure(fmt.Errorf("unknown request type %q", req.Type))
}
