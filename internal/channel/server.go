package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// ServerConfig is the configuration for the Server.
type ServerConfig struct {
	Handler        Handler
	OnNotification NotificationHandler
	Logger         log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "channel.Server"})
	return nil
}

// Server is the accepting side of the channel. It serves one controller
// connection at a time, a new connection replaces the previous one.
type Server struct {
	cfg    ServerConfig
	logger log.Logger
	ws     websocket.Server

	mu   sync.Mutex
	peer *Peer
}

// NewServer returns a new channel server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.ws = websocket.Server{
		// Extensions connect with chrome-extension:// origins, any origin is accepted.
		Handshake: func(cfg *websocket.Config, r *http.Request) error {
			cfg.Origin, _ = websocket.Origin(cfg, r)
			return nil
		},
		Handler: s.serve,
	}
	return s, nil
}

// ServeHTTP satisfies http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.ws.ServeHTTP(w, r)
}

func (s *Server) serve(ws *websocket.Conn) {
	peer, err := NewPeer(ws, PeerConfig{
		Handler:        s.cfg.Handler,
		OnNotification: s.cfg.OnNotification,
		Logger:         s.cfg.Logger,
	})
	if err != nil {
		s.logger.Errorf("Could not create peer: %s", err)
		_ = ws.Close()
		return
	}

	s.mu.Lock()
	old := s.peer
	s.peer = peer
	s.mu.Unlock()
	if old != nil {
		s.logger.Infof("New controller connected, replacing the previous one")
		_ = old.Close()
	} else {
		s.logger.Infof("Controller connected")
	}

	if err := peer.Run(ws.Request().Context()); err != nil {
		s.logger.Warningf("Controller connection dropped: %s", err)
	}

	s.mu.Lock()
	if s.peer == peer {
		s.peer = nil
	}
	s.mu.Unlock()
}

func (s *Server) current() (*Peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer == nil {
		return nil, fmt.Errorf("no controller connected: %w", model.ErrDisconnected)
	}
	return s.peer, nil
}

// Connected returns true when a controller is connected.
func (s *Server) Connected() bool {
	_, err := s.current()
	return err == nil
}

// Call sends a command to the connected controller.
func (s *Server) Call(ctx context.Context, typ string, params any) (Response, error) {
	peer, err := s.current()
	if err != nil {
		return Response{}, err
	}
	return peer.Call(ctx, typ, params)
}

// Notify pushes a notification to the connected controller.
func (s *Server) Notify(ctx context.Context, n Notification) error {
	peer, err := s.current()
	if err != nil {
		return err
	}
	return peer.Notify(n)
}

// Close drops the current connection.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer != nil {
		_ = s.peer.Close()
		s.peer = nil
	}
	return nil
}
