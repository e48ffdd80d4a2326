package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/charmbracelet/readaloud/internal/protocol"
)

// Subjects the two services answer on.
const (
	SubjectController = "readaloud.controller"
	SubjectEngine     = "readaloud.engine"
)

// ErrNoResponders means nothing is serving the subject.
var ErrNoResponders = errors.New("no service is listening")

// Client sends and serves protocol requests.
type Client struct {
	conn   *nats.Conn
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	subs     []*nats.Subscription
	inflight sync.WaitGroup
}

// Connect dials url.
func Connect(ctx context.Context, url, name string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 && d < timeout {
			timeout = d
		}
	}

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(timeout),
		nats.MaxReconnects(10),
		nats.ReconnectWait(250*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", url, err)
	}

	base, cancel := context.WithCancel(context.Background())
	logger.Debug("connected to bus", "url", url, "name", name)
	return &Client{conn: conn, logger: logger, ctx: base, cancel: cancel}, nil
}

// Request sends req to subject and waits for the reply or ctx. Failures
// reported by the service come back as a response with OK false.
func (c *Client) Request(ctx context.Context, subject string, req protocol.Request) (protocol.Response, error) {
	data, err := protocol.Encode(req)
	if err != nil {
		return protocol.Response{}, err
	}

	msg, err := c.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			err = ErrNoResponders
		}
		return protocol.Response{}, fmt.Errorf("%s %s: %w", subject, req.Type, err)
	}
	return protocol.DecodeResponse(msg.Data)
}

// Serve answers requests on subject with h. Each request runs in its own
// goroutine.
func (c *Client) Serve(subject string, h protocol.Handler) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			c.handle(msg, h)
		}()
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return c.conn.Flush()
}

func (c *Client) handle(msg *nats.Msg, h protocol.Handler) {
	var resp protocol.Response
	req, err := protocol.Decode(msg.Data)
	if err != nil {
		resp = protocol.Failure(err)
	} else {
		resp = h.Handle(c.ctx, req)
	}

	data, err := protocol.EncodeResponse(resp)
	if err != nil {
		c.logger.Error("encode response", "type", req.Type, "err", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Debug("respond", "type", req.Type, "err", err)
	}
}

// Healthy reports whether the connection is up.
func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

// Close stops serving, waits for running handlers and closes the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
	c.mu.Unlock()

	c.cancel()
	c.inflight.Wait()
	c.conn.Close()
}
