package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// Dialer opens a websocket connection.
type Dialer func(ctx context.Context) (*websocket.Conn, error)

// ClientConfig is the configuration for the Client.
type ClientConfig struct {
	URL    string
	Origin string
	// Dial is optional, by default URL and Origin are dialed.
	Dial           Dialer
	Handler        Handler
	OnNotification NotificationHandler
	// DefaultTimeout bounds calls whose context has no deadline. Zero means no bound.
	DefaultTimeout time.Duration
	Logger         log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Dial == nil {
		if c.URL == "" {
			return fmt.Errorf("url is required")
		}
		if c.Origin == "" {
			c.Origin = "http://localhost/"
		}
		url, origin := c.URL, c.Origin
		c.Dial = func(ctx context.Context) (*websocket.Conn, error) {
			cfg, err := websocket.NewConfig(url, origin)
			if err != nil {
				return nil, err
			}
			return cfg.DialContext(ctx)
		}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "channel.Client"})
	return nil
}

// Client is a channel side that connects lazily: the connection is made on
// the first call and made again on the first call after it drops. Requests
// in flight when it drops are abandoned, not retried.
type Client struct {
	cfg    ClientConfig
	logger log.Logger

	mu   sync.Mutex
	peer *Peer
}

// NewClient returns a new client. It does not connect.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{cfg: cfg, logger: cfg.Logger}, nil
}

func (c *Client) connect(ctx context.Context) (*Peer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.peer != nil {
		select {
		case <-c.peer.Done():
			c.peer = nil
		default:
			return c.peer, nil
		}
	}

	ws, err := c.cfg.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not connect: %w: %w", model.ErrTransport, err)
	}

	peer, err := NewPeer(ws, PeerConfig{
		Handler:        c.cfg.Handler,
		OnNotification: c.cfg.OnNotification,
		Logger:         c.cfg.Logger,
	})
	if err != nil {
		_ = ws.Close()
		return nil, err
	}

	go func() {
		if err := peer.Run(context.Background()); err != nil {
			c.logger.Warningf("Connection dropped: %s", err)
		}
	}()
	c.peer = peer
	c.logger.Debugf("Connected")

	return peer, nil
}

// Call sends a command and waits for its response.
func (c *Client) Call(ctx context.Context, typ string, params any) (Response, error) {
	if _, ok := ctx.Deadline(); !ok && c.cfg.DefaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DefaultTimeout)
		defer cancel()
	}

	peer, err := c.connect(ctx)
	if err != nil {
		return Response{}, err
	}
	return peer.Call(ctx, typ, params)
}

// Notify pushes a notification to the other side.
func (c *Client) Notify(ctx context.Context, n Notification) error {
	peer, err := c.connect(ctx)
	if err != nil {
		return err
	}
	return peer.Notify(n)
}

// Close drops the connection if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.peer == nil {
		return nil
	}
	err := c.peer.Close()
	c.peer = nil
	return err
}
