package control_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/browser/extract"
	"github.com/peebo/peebo/internal/browser/fake"
	"github.com/peebo/peebo/internal/browser/input"
	"github.com/peebo/peebo/internal/browser/tab"
	"github.com/peebo/peebo/internal/channel"
	"github.com/peebo/peebo/internal/control"
	"github.com/peebo/peebo/internal/model"
)

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func evaluate(tabID, expr string) (any, error) {
	switch {
	case strings.HasPrefix(expr, "(function peeboCollect"):
		return map[string]any{
			"url":            "https://jobs.example.com/co/123",
			"title":          "Apply",
			"viewportWidth":  1280,
			"viewportHeight": 720,
			"candidates": []map[string]any{
				{
					"k": 1, "tag": "input", "type": "email", "ariaLabel": "Email",
					"display": "block", "visibility": "visible", "opacity": 1,
					"x": 10, "y": 10, "width": 200, "height": 30,
				},
			},
		}, nil
	case strings.HasPrefix(expr, "(function peeboNativeValue"):
		return "ok", nil
	case strings.HasPrefix(expr, "(function peeboCenter"):
		return map[string]any{"found": true, "x": 110, "y": 25}, nil
	case strings.HasPrefix(expr, "(function peeboViewport"):
		return map[string]any{"width": 1280, "height": 720}, nil
	case strings.HasPrefix(expr, "(function peebo"):
		return map[string]any{"found": true}, nil
	case expr == "1 + 1":
		return 2, nil
	}
	return nil, fmt.Errorf("unexpected script: %s", expr)
}

type testEnv struct {
	driver     *fake.Driver
	dispatcher *control.Dispatcher
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	d, err := fake.NewDriver(fake.DriverConfig{Evaluator: evaluate})
	require.NoError(t, err)
	d.OpenTab("https://jobs.example.com/co/123")

	ctrl, err := tab.NewController(tab.ControllerConfig{Driver: d, Sleep: noSleep})
	require.NoError(t, err)
	extr, err := extract.NewExtractor(extract.ExtractorConfig{Sleep: noSleep})
	require.NoError(t, err)
	synth, err := input.NewSynthesizer(input.SynthesizerConfig{Resolver: extr, Sleep: noSleep})
	require.NoError(t, err)

	disp, err := control.NewDispatcher(control.DispatcherConfig{
		Controller:  ctrl,
		Extractor:   extr,
		Synthesizer: synth,
		TimeNow:     func() time.Time { return time.UnixMilli(1700000000000) },
	})
	require.NoError(t, err)

	return &testEnv{driver: d, dispatcher: disp}
}

func call(t *testing.T, d *control.Dispatcher, typ string, params string) channel.Response {
	t.Helper()
	req := channel.Request{ID: "req-1", Type: typ}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	resp := d.Handle(context.Background(), req)
	assert.Equal(t, "req-1", resp.ID)
	return resp
}

func TestParse(t *testing.T) {
	tests := map[string]struct {
		typ    string
		params string
		expCmd control.Command
		expErr error
	}{
		"A navigate command should carry its URL.": {
			typ:    "navigate",
			params: `{"url":"example.com"}`,
			expCmd: control.Navigate{URL: "example.com"},
		},
		"A navigate command without URL should fail.": {
			typ:    "navigate",
			params: `{}`,
			expErr: model.ErrNotValid,
		},
		"A click by coordinates should set a point target.": {
			typ:    "click",
			params: `{"x":10,"y":20}`,
			expCmd: control.Click{Target: input.Target{X: 10, Y: 20, HasPoint: true}},
		},
		"A click with a single coordinate should not set a point target.": {
			typ:    "click",
			params: `{"x":10}`,
			expCmd: control.Click{},
		},
		"A type command should carry the index and text.": {
			typ:    "type",
			params: `{"index":3,"text":"Ada"}`,
			expCmd: control.TypeText{Target: input.Target{Index: 3}, Text: "Ada"},
		},
		"Send keys should accept the keys alias.": {
			typ:    "send_keys",
			params: `{"keys":"Enter"}`,
			expCmd: control.SendKeys{Key: "Enter"},
		},
		"Upload file should accept the filePath alias.": {
			typ:    "upload_file",
			params: `{"selector":"#resume","filePath":"/tmp/cv.pdf"}`,
			expCmd: control.UploadFile{Target: input.Target{Selector: "#resume"}, Path: "/tmp/cv.pdf"},
		},
		"Missing params should be accepted for commands without params.": {
			typ:    "ping",
			expCmd: control.Ping{},
		},
		"Malformed params should fail.": {
			typ:    "scroll",
			params: `{"amount":"lots"}`,
			expErr: model.ErrNotValid,
		},
		"An unknown type should fail with unknown command.": {
			typ:    "teleport",
			expErr: model.ErrUnknownCommand,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			var raw json.RawMessage
			if test.params != "" {
				raw = json.RawMessage(test.params)
			}
			cmd, err := control.Parse(test.typ, raw)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			if assert.NoError(err) {
				assert.Equal(test.expCmd, cmd)
			}
		})
	}
}

func TestEveryCommandTypeIsHandled(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cv.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF"), 0o600))
	params, err := json.Marshal(map[string]any{
		"url":    "https://jobs.example.com/co/456",
		"index":  1,
		"text":   "ada@example.com",
		"script": "1 + 1",
		"key":    "enter",
		"path":   file,
	})
	require.NoError(t, err)

	types := control.Types()
	assert.Len(t, types, 17)

	for _, typ := range types {
		t.Run(string(typ), func(t *testing.T) {
			env := newEnv(t)
			cmd, err := control.Parse(string(typ), params)
			require.NoError(t, err)
			assert.Equal(t, typ, cmd.Type())

			if typ != control.TypeAttachActiveTab && typ != control.TypePing {
				res := env.dispatcher.Execute(context.Background(), control.AttachActiveTab{})
				require.True(t, res.Success, res.Error)
			}
			res := env.dispatcher.Execute(context.Background(), cmd)
			assert.True(t, res.Success, res.Error)
		})
	}
}

func TestDispatcherHandle(t *testing.T) {
	t.Run("Unknown commands should return a structured error.", func(t *testing.T) {
		env := newEnv(t)
		resp := call(t, env.dispatcher, "teleport", `{}`)
		assert.False(t, resp.Success)
		assert.Equal(t, "Unknown command: teleport", resp.Error)
	})

	t.Run("Invalid params should return the validation error.", func(t *testing.T) {
		env := newEnv(t)
		resp := call(t, env.dispatcher, "navigate", `{}`)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "url is required")
	})

	t.Run("Ping should answer without a tab.", func(t *testing.T) {
		env := newEnv(t)
		resp := call(t, env.dispatcher, "ping", "")
		assert.True(t, resp.Success)
		assert.Equal(t, true, resp.Result["pong"])
		assert.Equal(t, int64(1700000000000), resp.Result["timestamp"])
	})

	t.Run("Page actions without a controlled tab should fail with an attachment error.", func(t *testing.T) {
		env := newEnv(t)
		resp := call(t, env.dispatcher, "click", `{"index":1}`)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "no controlled tab")
	})

	t.Run("Attaching should report the controlled tab.", func(t *testing.T) {
		env := newEnv(t)
		resp := call(t, env.dispatcher, "attach_active_tab", "")
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, env.driver.ActiveTabID(), resp.Result["tabId"])
		assert.Equal(t, true, resp.Result["debuggerAttached"])
	})

	t.Run("Extracting should list elements and render text.", func(t *testing.T) {
		env := newEnv(t)
		call(t, env.dispatcher, "attach_active_tab", "")

		resp := call(t, env.dispatcher, "extract_dom", `{"screenshot":true}`)
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, "https://jobs.example.com/co/123", resp.Result["url"])
		assert.Contains(t, resp.Result["text"], `[1] textbox "Email"`)
		elems, ok := resp.Result["elements"].([]model.Element)
		require.True(t, ok)
		assert.Len(t, elems, 1)
		assert.NotEmpty(t, resp.Result["screenshot"])
	})

	t.Run("An index past the map should name the index.", func(t *testing.T) {
		env := newEnv(t)
		call(t, env.dispatcher, "attach_active_tab", "")

		resp := call(t, env.dispatcher, "type", `{"index":7,"text":"x"}`)
		assert.False(t, resp.Success)
		assert.Equal(t, "element not found (index 7)", resp.Error)
	})

	t.Run("Executing a script should return its value.", func(t *testing.T) {
		env := newEnv(t)
		call(t, env.dispatcher, "attach_active_tab", "")

		resp := call(t, env.dispatcher, "execute_script", `{"script":"1 + 1"}`)
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, json.RawMessage("2"), resp.Result["result"])
	})

	t.Run("History commands should report the resulting URL.", func(t *testing.T) {
		env := newEnv(t)
		call(t, env.dispatcher, "attach_active_tab", "")
		call(t, env.dispatcher, "navigate", `{"url":"jobs.example.com/co/456"}`)

		resp := call(t, env.dispatcher, "go_back", "")
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, "https://jobs.example.com/co/123", resp.Result["url"])

		resp = call(t, env.dispatcher, "go_forward", "")
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, "https://jobs.example.com/co/456", resp.Result["url"])
	})

	t.Run("Cleanup should detach and blank the controlled tab.", func(t *testing.T) {
		env := newEnv(t)
		call(t, env.dispatcher, "attach_active_tab", "")
		id := env.driver.ActiveTabID()

		resp := call(t, env.dispatcher, "cleanup_all", "")
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, "about:blank", env.driver.URL(id))

		resp = call(t, env.dispatcher, "detach_tab", "")
		require.True(t, resp.Success, resp.Error)
		assert.Equal(t, false, resp.Result["debuggerAttached"])
	})
}
