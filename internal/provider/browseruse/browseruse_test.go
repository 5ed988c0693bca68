package browseruse_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/provider"
	"github.com/peebo/peebo/internal/provider/browseruse"
)

func newClient(t *testing.T, h http.HandlerFunc) *browseruse.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := browseruse.NewClient(browseruse.ClientConfig{BaseURL: srv.URL + "/", APIKey: "secret"})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := browseruse.NewClient(browseruse.ClientConfig{})
	assert.Error(t, err)
}

func TestClientCreateTask(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/run-task", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "apply please", body["task"])

		_, _ = w.Write([]byte(`{"id":"bu-1"}`))
	})

	id, err := c.CreateTask(context.Background(), "https://jobs.example.com/co/123", "apply please")
	require.NoError(t, err)
	assert.Equal(t, "bu-1", id)
}

func TestClientGetTaskStatus(t *testing.T) {
	tests := map[string]struct {
		code      int
		body      string
		expStatus provider.Status
		expErr    error
	}{
		"A step list should give the count and the last goal.": {
			code:      200,
			body:      `{"id":"bu-1","status":"running","steps":[{"step":1,"next_goal":"open"},{"step":2,"next_goal":"fill email"}]}`,
			expStatus: provider.Status{State: "running", Steps: 2, CurrentStep: "fill email"},
		},
		"A step count should be used as is.": {
			code:      200,
			body:      `{"status":"finished","steps":7,"output":"Thank you","cost":"0.12"}`,
			expStatus: provider.Status{State: "finished", Steps: 7, Output: "Thank you", Cost: 0.12},
		},
		"Missing steps should be unknown.": {
			code:      200,
			body:      `{"status":"created","cost":0.5}`,
			expStatus: provider.Status{State: "created", Steps: -1, Cost: 0.5},
		},
		"A server error should be a transport error.": {
			code:   502,
			body:   `bad gateway`,
			expErr: model.ErrTransport,
		},
		"Rate limiting should be a transport error.": {
			code:   429,
			expErr: model.ErrTransport,
		},
		"A missing task should be not found.": {
			code:   404,
			body:   `{"detail":"not found"}`,
			expErr: model.ErrNotFound,
		},
		"An auth error should be a provider failure.": {
			code:   401,
			expErr: model.ErrProviderTask,
		},
		"A malformed body should be a provider failure.": {
			code:   200,
			body:   `{"status":`,
			expErr: model.ErrProviderTask,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/task/bu-1", r.URL.Path)
				w.WriteHeader(test.code)
				_, _ = w.Write([]byte(test.body))
			})

			st, err := c.GetTaskStatus(context.Background(), "bu-1")
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}
			if assert.NoError(t, err) {
				assert.Equal(t, test.expStatus, st)
			}
		})
	}
}

func TestClientCancelTask(t *testing.T) {
	called := false
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/stop-task", r.URL.Path)
		assert.Equal(t, "bu-1", r.URL.Query().Get("task_id"))
	})

	require.NoError(t, c.CancelTask(context.Background(), "bu-1"))
	assert.True(t, called)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := browseruse.NewClient(browseruse.ClientConfig{BaseURL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = c.GetTaskStatus(context.Background(), "bu-1")
	assert.ErrorIs(t, err, model.ErrTransport)
}
