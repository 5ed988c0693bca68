// Package channel is the bidirectional, id correlated command channel
// between the local controller and the browser coordinator.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// Handler executes the commands received from the other side.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// HandlerFunc is a helper to create handlers from functions.
type HandlerFunc func(ctx context.Context, req Request) Response

// Handle satisfies Handler interface.
func (h HandlerFunc) Handle(ctx context.Context, req Request) Response { return h(ctx, req) }

// NotificationHandler receives out of band notifications.
type NotificationHandler func(ctx context.Context, n Notification)

var noHandler = HandlerFunc(func(ctx context.Context, req Request) Response {
	return Response{ID: req.ID, Success: false, Error: "Unknown command: " + req.Type}
})

// PeerConfig is the configuration for a Peer.
type PeerConfig struct {
	// Handler executes incoming commands, without it every command is unknown.
	Handler        Handler
	OnNotification NotificationHandler
	NewID          func() string
	Logger         log.Logger
}

func (c *PeerConfig) defaults() error {
	if c.Handler == nil {
		c.Handler = noHandler
	}
	if c.OnNotification == nil {
		c.OnNotification = func(context.Context, Notification) {}
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "channel.Peer"})
	return nil
}

// Peer is one side of a channel connection. Both sides can send commands
// and both execute what they receive.
type Peer struct {
	ws       *websocket.Conn
	table    *CorrelationTable
	handler  Handler
	onNotify NotificationHandler
	newID    func() string
	logger   log.Logger

	sendMu    sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewPeer returns a peer over a websocket connection. Run must be called to
// process incoming messages.
func NewPeer(ws *websocket.Conn, cfg PeerConfig) (*Peer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Peer{
		ws:       ws,
		table:    NewCorrelationTable(),
		handler:  cfg.Handler,
		onNotify: cfg.OnNotification,
		newID:    cfg.NewID,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}, nil
}

// Run reads messages until the connection drops or the context ends. When it
// returns, every pending request has been abandoned.
func (p *Peer) Run(ctx context.Context) error {
	defer p.shutdown()

	go func() {
		select {
		case <-ctx.Done():
			p.shutdown()
		case <-p.done:
		}
	}()

	for {
		var data []byte
		if err := websocket.Message.Receive(p.ws, &data); err != nil {
			select {
			case <-p.done:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("could not receive: %w", err)
		}
		p.dispatch(ctx, data)
	}
}

func (p *Peer) dispatch(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		p.logger.Warningf("Dropping malformed message: %s", err)
		return
	}

	switch {
	case env.ID != "" && p.table.Has(env.ID):
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			p.logger.Warningf("Dropping malformed response %s: %s", env.ID, err)
			return
		}
		p.table.Resolve(resp)

	case env.Type == NotificationType:
		var n notificationMessage
		if err := json.Unmarshal(data, &n); err != nil {
			p.logger.Warningf("Dropping malformed notification: %s", err)
			return
		}
		p.onNotify(ctx, n.Payload)

	case env.Type != "":
		req := Request{ID: env.ID, Type: env.Type, Params: env.Params}
		go func() {
			resp := p.handler.Handle(ctx, req)
			resp.ID = req.ID
			if err := p.send(resp); err != nil {
				p.logger.Warningf("Could not send response %s: %s", req.ID, err)
			}
		}()

	default:
		p.logger.Warningf("Dropping untracked message %q", env.ID)
	}
}

func (p *Peer) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("could not marshal message: %w", err)
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	// Text frames, browser extensions read strings.
	if err := websocket.Message.Send(p.ws, string(data)); err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
	return nil
}

// Call sends a command and waits for its response. There is no built-in
// timeout, bound it with the context.
func (p *Peer) Call(ctx context.Context, typ string, params any) (Response, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Response{}, fmt.Errorf("could not marshal params: %w", err)
	}
	if params == nil {
		raw = json.RawMessage(`{}`)
	}

	id := p.newID()
	ch := p.table.Register(id)

	select {
	case <-p.done:
		p.table.Remove(id)
		return Response{}, model.ErrDisconnected
	default:
	}

	if err := p.send(Request{ID: id, Type: typ, Params: raw}); err != nil {
		p.table.Remove(id)
		return Response{}, err
	}

	select {
	case o := <-ch:
		return o.Response, o.Err
	case <-ctx.Done():
		p.table.Remove(id)
		return Response{}, ctx.Err()
	}
}

// Notify pushes a notification, no response is expected.
func (p *Peer) Notify(n Notification) error {
	select {
	case <-p.done:
		return model.ErrDisconnected
	default:
	}
	return p.send(notificationMessage{Type: NotificationType, Payload: n})
}

// Pending returns the number of requests waiting for a response.
func (p *Peer) Pending() int { return p.table.Len() }

// Done is closed when the peer stops.
func (p *Peer) Done() <-chan struct{} { return p.done }

// Close closes the connection and abandons pending requests.
func (p *Peer) Close() error {
	p.shutdown()
	return nil
}

func (p *Peer) shutdown() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.ws.Close()
		p.table.AbandonAll(model.ErrDisconnected)
	})
}
