// Package bus carries protocol requests between the client, the session
// controller and the playback engine over NATS request/reply.
package bus

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats-server/v2/server"
)

// DefaultMaxPayload fits a WAV chunk after JSON and base64 overhead.
const DefaultMaxPayload = 16 << 20

// DefaultPort is the loopback port the daemon listens on.
const DefaultPort = 14222

// ServerOptions configures the embedded server.
type ServerOptions struct {
	Host       string
	Port       int // server.RANDOM_PORT picks a free port
	MaxPayload int32
	Logger     *log.Logger
}

// Server is an embedded NATS server.
type Server struct {
	ns     *server.Server
	logger *log.Logger
}

// StartServer starts an embedded server and waits until it accepts
// connections.
func StartServer(opts ServerOptions) (*Server, error) {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.MaxPayload <= 0 {
		opts.MaxPayload = DefaultMaxPayload
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	ns, err := server.NewServer(&server.Options{
		ServerName: "readaloud",
		Host:       opts.Host,
		Port:       opts.Port,
		MaxPayload: opts.MaxPayload,
		NoLog:      true,
		NoSigs:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within 5 seconds")
	}

	opts.Logger.Info("embedded NATS server started", "url", ns.ClientURL())
	return &Server{ns: ns, logger: opts.Logger}, nil
}

// URL is the address clients connect to.
func (s *Server) URL() string {
	return s.ns.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (s *Server) Shutdown() {
	if s == nil || s.ns == nil {
		return
	}
	s.logger.Debug("shutting down embedded NATS server")
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}
