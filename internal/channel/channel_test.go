package channel_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/channel"
	"github.com/peebo/peebo/internal/model"
)

func echoHandler() channel.Handler {
	return channel.HandlerFunc(func(ctx context.Context, req channel.Request) channel.Response {
		switch req.Type {
		case "ping":
			return channel.Response{Success: true, Result: map[string]any{"pong": true}}
		case "echo":
			var p struct {
				Value int `json:"value"`
				Delay int `json:"delay"`
			}
			_ = json.Unmarshal(req.Params, &p)
			time.Sleep(time.Duration(p.Delay) * time.Millisecond)
			return channel.Response{Success: true, Result: map[string]any{"value": p.Value}}
		}
		return channel.Response{Success: false, Error: "Unknown command: " + req.Type}
	})
}

func newServer(t *testing.T, cfg channel.ServerConfig) (*channel.Server, string) {
	t.Helper()
	srv, err := channel.NewServer(cfg)
	require.NoError(t, err)
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		_ = srv.Close()
		hs.Close()
	})
	return srv, "ws://" + hs.Listener.Addr().String()
}

func newClient(t *testing.T, cfg channel.ClientConfig) *channel.Client {
	t.Helper()
	c, err := channel.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientCallsServer(t *testing.T) {
	tests := map[string]struct {
		handler    channel.Handler
		typ        string
		expSuccess bool
		expError   string
		expResult  map[string]any
	}{
		"A known command should be answered with its result fields": {
			handler:    echoHandler(),
			typ:        "ping",
			expSuccess: true,
			expResult:  map[string]any{"pong": true},
		},
		"An unknown command should get a structured error": {
			handler:  echoHandler(),
			typ:      "teleport",
			expError: "Unknown command: teleport",
		},
		"A side without handler should answer every command as unknown": {
			typ:      "ping",
			expError: "Unknown command: ping",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			assert := assert.New(t)

			_, url := newServer(t, channel.ServerConfig{Handler: test.handler})
			c := newClient(t, channel.ClientConfig{URL: url})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			resp, err := c.Call(ctx, test.typ, nil)
			require.NoError(err)

			assert.NotEmpty(resp.ID)
			assert.Equal(test.expSuccess, resp.Success)
			assert.Equal(test.expError, resp.Error)
			if test.expResult != nil {
				assert.Equal(test.expResult, resp.Result)
			}
		})
	}
}

func TestOutOfOrderResponsesAreCorrelated(t *testing.T) {
	_, url := newServer(t, channel.ServerConfig{Handler: echoHandler()})
	c := newClient(t, channel.ClientConfig{URL: url, DefaultTimeout: 5 * time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Earlier requests take longer so responses come back reversed.
			resp, err := c.Call(context.Background(), "echo", map[string]int{"value": i, "delay": (10 - i) * 10})
			if assert.NoError(t, err) {
				assert.Equal(t, float64(i), resp.Result["value"])
			}
		}(i)
	}
	wg.Wait()
}

func TestServerCallsClientAndNotifies(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notified := make(chan channel.Notification, 1)
	srv, url := newServer(t, channel.ServerConfig{Handler: echoHandler()})
	c := newClient(t, channel.ClientConfig{
		URL:     url,
		Handler: echoHandler(),
		OnNotification: func(ctx context.Context, n channel.Notification) {
			notified <- n
		},
	})

	_, err := c.Call(ctx, "ping", nil)
	require.NoError(err)
	require.Eventually(srv.Connected, time.Second, 10*time.Millisecond)

	resp, err := srv.Call(ctx, "echo", map[string]int{"value": 42})
	require.NoError(err)
	assert.True(resp.Success)
	assert.Equal(float64(42), resp.Result["value"])

	require.NoError(srv.Notify(ctx, channel.Notification{Event: "task_completed", Title: "Applied", Message: "Acme"}))
	select {
	case n := <-notified:
		assert.Equal("task_completed", n.Event)
		assert.Equal("Acme", n.Message)
	case <-ctx.Done():
		t.Fatal("notification not received")
	}
}

func TestServerWithoutControllerIsDisconnected(t *testing.T) {
	srv, _ := newServer(t, channel.ServerConfig{})

	_, err := srv.Call(context.Background(), "ping", nil)
	assert.ErrorIs(t, err, model.ErrDisconnected)
}

func TestDisconnectAbandonsInFlightAndReconnects(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	handler := channel.HandlerFunc(func(ctx context.Context, req channel.Request) channel.Response {
		if req.Type == "slow" {
			started <- struct{}{}
			<-release
		}
		return channel.Response{Success: true}
	})

	srv, url := newServer(t, channel.ServerConfig{Handler: handler})
	c := newClient(t, channel.ClientConfig{URL: url, DefaultTimeout: 5 * time.Second})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), "slow", nil)
		errCh <- err
	}()

	<-started
	require.NoError(srv.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(err, model.ErrDisconnected)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request was not abandoned")
	}
	close(release)

	resp, err := c.Call(context.Background(), "ping", nil)
	require.NoError(err)
	assert.True(resp.Success)
}

func TestCallTimeoutComesFromContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	handler := channel.HandlerFunc(func(ctx context.Context, req channel.Request) channel.Response {
		<-release
		return channel.Response{Success: true}
	})

	_, url := newServer(t, channel.ServerConfig{Handler: handler})
	c := newClient(t, channel.ClientConfig{URL: url})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Call(ctx, "slow", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCorrelationTable(t *testing.T) {
	assert := assert.New(t)

	tbl := channel.NewCorrelationTable()
	a := tbl.Register("a")
	b := tbl.Register("b")
	assert.Equal(2, tbl.Len())

	assert.True(tbl.Resolve(channel.Response{ID: "a", Success: true}))
	assert.False(tbl.Resolve(channel.Response{ID: "a", Success: true}), "resolved entries are removed")
	assert.False(tbl.Resolve(channel.Response{ID: "zzz"}))
	assert.True((<-a).Response.Success)

	tbl.AbandonAll(model.ErrDisconnected)
	assert.ErrorIs((<-b).Err, model.ErrDisconnected)
	assert.Equal(0, tbl.Len())
}

func TestResponseJSONIsFlat(t *testing.T) {
	assert := assert.New(t)

	data, err := json.Marshal(channel.Response{ID: "1", Success: true, Result: map[string]any{"url": "https://example.com"}})
	require.NoError(t, err)
	assert.JSONEq(`{"id":"1","success":true,"url":"https://example.com"}`, string(data))

	var resp channel.Response
	require.NoError(t, json.Unmarshal([]byte(`{"id":"2","success":false,"error":"boom","extra":1}`), &resp))
	assert.Equal(channel.Response{ID: "2", Success: false, Error: "boom", Result: map[string]any{"extra": float64(1)}}, resp)
	assert.EqualError(resp.Err(), "boom")
	assert.NoError(channel.Response{Success: true}.Err())
}
