package control

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/browser/extract"
	"github.com/peebo/peebo/internal/browser/input"
	"github.com/peebo/peebo/internal/browser/tab"
	"github.com/peebo/peebo/internal/channel"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// DispatcherConfig is the configuration for the Dispatcher.
type DispatcherConfig struct {
	Controller  *tab.Controller
	Extractor   *extract.Extractor
	Synthesizer *input.Synthesizer
	// TimeNow is used for ping timestamps.
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *DispatcherConfig) defaults() error {
	if c.Controller == nil {
		return fmt.Errorf("tab controller is required")
	}
	if c.Extractor == nil {
		return fmt.Errorf("extractor is required")
	}
	if c.Synthesizer == nil {
		return fmt.Errorf("input synthesizer is required")
	}
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "control.Dispatcher"})
	return nil
}

// Dispatcher executes commands against the controlled tab. It is the
// channel handler of the browser coordinator.
type Dispatcher struct {
	ctrl    *tab.Controller
	extr    *extract.Extractor
	synth   *input.Synthesizer
	timeNow func() time.Time
	logger  log.Logger
}

// NewDispatcher returns a new command dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Dispatcher{
		ctrl:    cfg.Controller,
		extr:    cfg.Extractor,
		synth:   cfg.Synthesizer,
		timeNow: cfg.TimeNow,
		logger:  cfg.Logger,
	}, nil
}

var _ channel.Handler = &Dispatcher{}

// Handle satisfies channel.Handler.
func (d *Dispatcher) Handle(ctx context.Context, req channel.Request) channel.Response {
	cmd, err := Parse(req.Type, req.Params)
	if err != nil {
		if errors.Is(err, model.ErrUnknownCommand) {
			d.logger.Warningf("Unknown command received: %s", req.Type)
			return channel.Response{ID: req.ID, Success: false, Error: "Unknown command: " + req.Type}
		}
		return channel.Response{ID: req.ID, Success: false, Error: err.Error()}
	}

	res := d.Execute(ctx, cmd)
	return channel.Response{ID: req.ID, Success: res.Success, Error: res.Error, Result: res.Data}
}

// Execute runs one command. Failures are returned in the result, never as a
// panic or error.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) browser.ActionResult {
	logger := d.logger.WithValues(log.Kv{"cmd": cmd.Type()})
	res := d.execute(ctx, cmd)
	if !res.Success {
		logger.Warningf("Command failed: %s", res.Error)
	} else {
		logger.Debugf("Command executed")
	}
	return res
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) browser.ActionResult {
	switch c := cmd.(type) {
	case Ping:
		return browser.OK(map[string]any{"pong": true, "timestamp": d.timeNow().UnixMilli()})

	case AttachActiveTab:
		st, err := d.ctrl.AttachActive(ctx)
		return tabResult(st, err)

	case Navigate:
		st, err := d.ctrl.Navigate(ctx, c.URL)
		if err != nil {
			return browser.Fail(err)
		}
		res := tabResult(st, nil)
		if u, err := d.ctrl.URL(ctx); err == nil {
			res.Data["url"] = u
		}
		return res

	case Click:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			return d.synth.Click(ctx, s, c.Target)
		})

	case TypeText:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			return d.synth.Type(ctx, s, c.Target, c.Text)
		})

	case Hover:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			return d.synth.Hover(ctx, s, c.Target)
		})

	case Scroll:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			return d.synth.Scroll(ctx, s, c.Direction, c.Amount)
		})

	case SendKeys:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			return d.synth.SendKeys(ctx, s, c.Key)
		})

	case UploadFile:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			return d.synth.UploadFile(ctx, s, c.Target, c.Path)
		})

	case ExtractDOM:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			return d.extractDOM(ctx, s, c.Screenshot)
		})

	case ExecuteScript:
		return d.do(ctx, func(ctx context.Context, s browser.Session) browser.ActionResult {
			var out json.RawMessage
			if err := s.Evaluate(ctx, c.Script, &out); err != nil {
				return browser.Fail(fmt.Errorf("script failed: %w", err))
			}
			if len(out) == 0 {
				out = json.RawMessage("null")
			}
			return browser.OK(map[string]any{"result": out})
		})

	case GoBack:
		return d.history(ctx, d.ctrl.Back)

	case GoForward:
		return d.history(ctx, d.ctrl.Forward)

	case Refresh:
		return d.history(ctx, d.ctrl.Reload)

	case GetURL:
		u, err := d.ctrl.URL(ctx)
		if err != nil {
			return browser.Fail(err)
		}
		return browser.OK(map[string]any{"url": u})

	case DetachTab:
		return tabResult(d.ctrl.Detach(ctx), nil)

	case CleanupAll:
		if err := d.ctrl.Cleanup(ctx); err != nil {
			return browser.Fail(fmt.Errorf("cleanup finished with errors: %w", err))
		}
		return browser.OK(map[string]any{"cleaned": true})
	}

	return browser.Fail(fmt.Errorf("%w: %T", model.ErrUnknownCommand, cmd))
}

// do runs an action with the controlled session, folding attachment errors
// into the result.
func (d *Dispatcher) do(ctx context.Context, fn func(ctx context.Context, s browser.Session) browser.ActionResult) browser.ActionResult {
	var res browser.ActionResult
	err := d.ctrl.Do(ctx, func(ctx context.Context, s browser.Session) error {
		res = fn(ctx, s)
		return nil
	})
	if err != nil {
		return browser.Fail(err)
	}
	return res
}

func (d *Dispatcher) history(ctx context.Context, fn func(ctx context.Context) error) browser.ActionResult {
	if err := fn(ctx); err != nil {
		return browser.Fail(err)
	}
	data := map[string]any{}
	if u, err := d.ctrl.URL(ctx); err == nil {
		data["url"] = u
	}
	return browser.OK(data)
}

func (d *Dispatcher) extractDOM(ctx context.Context, s browser.Session, screenshot bool) browser.ActionResult {
	snap, _, err := d.extr.Extract(ctx, s)
	if err != nil {
		return browser.Fail(err)
	}

	if screenshot {
		img, err := d.extr.Screenshot(ctx, s, d.ctrl.ActivateFunc())
		if err != nil {
			return browser.Fail(fmt.Errorf("could not capture screenshot: %w", err))
		}
		snap.Screenshot = img
	}

	data := map[string]any{
		"url":          snap.URL,
		"title":        snap.Title,
		"scrollX":      snap.ScrollX,
		"scrollY":      snap.ScrollY,
		"scrollHeight": snap.ScrollHeight,
		"viewport":     map[string]any{"width": snap.ViewportWidth, "height": snap.ViewportHeight},
		"elements":     snap.Elements,
		"text":         extract.Format(snap),
	}
	if len(snap.Screenshot) > 0 {
		data["screenshot"] = base64.StdEncoding.EncodeToString(snap.Screenshot)
	}
	return browser.OK(data)
}

func tabResult(st model.ControlledTab, err error) browser.ActionResult {
	if err != nil {
		return browser.Fail(err)
	}
	return browser.OK(map[string]any{
		"tabId":            st.TabID,
		"debuggerAttached": st.DebuggerAttached,
		"debuggerTabId":    st.DebuggerTabID,
	})
}
