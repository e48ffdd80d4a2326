package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/readaloud/internal/protocol"
)

// Handle serves the public protocol.
func (c *Controller) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.Type {
	case protocol.KindPing:
		return protocol.OK()

	case protocol.KindReadCurrentPage:
		p, err := protocol.DecodePayload[protocol.ReadPayload](req)
		if err != nil {
			return protocol.Failure(err)
		}
		res, err := c.StartReading(ctx, ReadRequest{
			Provider:  p.Provider,
			Voice:     p.Voice,
			Source:    p.Source,
			Selection: p.Selection,
		})
		if err != nil {
			return protocol.Failure(err)
		}
		return protocol.Response{OK: true, Provider: res.Provider.String(), Chunks: res.Chunks}

	case protocol.KindPause:
		return result(c.Pause(ctx))

	case protocol.KindResume:
		return result(c.Resume(ctx))

	case protocol.KindStop:
		return result(c.Stop(ctx))

	case protocol.KindGetStatus:
		resp, err := c.Status(ctx)
		if err != nil {
			return protocol.Failure(err)
		}
		return resp
	}

	return protocol.Failure(fmt.Errorf("unknown request type %q", req.Type))
}

func result(err error) protocol.Response {
	if err != nil {
		return protocol.Failure(err)
	}
	return protocol.OK()
}
