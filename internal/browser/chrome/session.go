package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/model"
)

// Session is a browser.Session attached to one Chrome target.
type Session struct {
	id        target.ID
	sessionID target.SessionID
	driver    *Driver
	tabCtx    context.Context
	// release tears down the tab context, leaving the tab open.
	release  func() error
	detached chan struct{}
	once     sync.Once
}

// end marks the session detached. It runs inside chromedp event listeners,
// which must not block on CDP calls, so the release happens in the background.
func (s *Session) end() {
	if !s.markDetached() {
		return
	}
	go func() {
		if err := s.release(); err != nil {
			s.driver.logger.Debugf("Could not release tab context of %s: %s", s.id, err)
		}
	}()
}

// markDetached closes the detached channel, true only for the first caller.
func (s *Session) markDetached() bool {
	first := false
	s.once.Do(func() {
		close(s.detached)
		first = true
	})
	return first
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	select {
	case <-s.detached:
		return fmt.Errorf("session on tab %s detached: %w", s.id, model.ErrAttachment)
	default:
	}

	runCtx, cancel := bind(s.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// TabID satisfies browser.Session interface.
func (s *Session) TabID() string { return string(s.id) }

// Navigate satisfies browser.Session interface.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// Back satisfies browser.Session interface.
func (s *Session) Back(ctx context.Context) error { return s.run(ctx, chromedp.NavigateBack()) }

// Forward satisfies browser.Session interface.
func (s *Session) Forward(ctx context.Context) error { return s.run(ctx, chromedp.NavigateForward()) }

// Reload satisfies browser.Session interface.
func (s *Session) Reload(ctx context.Context) error { return s.run(ctx, chromedp.Reload()) }

// Location satisfies browser.Session interface.
func (s *Session) Location(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

// Evaluate satisfies browser.Session interface. Undefined results leave out untouched.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.Evaluate(expression).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			msg := exc.Text
			if exc.Exception != nil && exc.Exception.Description != "" {
				msg = exc.Exception.Description
			}
			return fmt.Errorf("script exception: %s", strings.TrimSpace(msg))
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal(res.Value, out)
	}))
}

// DispatchMouse satisfies browser.Session interface.
func (s *Session) DispatchMouse(ctx context.Context, ev browser.MouseEvent) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := input.DispatchMouseEvent(input.MouseType(ev.Type), ev.X, ev.Y)
		if ev.Button != "" {
			p = p.WithButton(input.MouseButton(ev.Button))
		}
		if ev.ClickCount > 0 {
			p = p.WithClickCount(ev.ClickCount)
		}
		if ev.Type == browser.MouseWheel {
			p = p.WithDeltaX(ev.DeltaX).WithDeltaY(ev.DeltaY)
		}
		return p.Do(ctx)
	}))
}

// DispatchKey satisfies browser.Session interface.
func (s *Session) DispatchKey(ctx context.Context, ev browser.KeyEvent) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := input.DispatchKeyEvent(input.KeyType(ev.Type)).
			WithKey(ev.Key).
			WithCode(ev.Code).
			WithWindowsVirtualKeyCode(ev.VirtualKeyCode).
			WithModifiers(input.Modifier(ev.Modifiers))
		if ev.Text != "" {
			p = p.WithText(ev.Text).WithUnmodifiedText(ev.Text)
		}
		return p.Do(ctx)
	}))
}

// SetFiles satisfies browser.Session interface.
func (s *Session) SetFiles(ctx context.Context, selector string, paths []string) error {
	return s.run(ctx, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery))
}

// Screenshot satisfies browser.Session interface.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Detached satisfies browser.Session interface.
func (s *Session) Detached() <-chan struct{} { return s.detached }

// Detach satisfies browser.Session interface. The tab stays open.
func (s *Session) Detach(ctx context.Context) error {
	s.driver.mu.Lock()
	if cur, ok := s.driver.sessions[s.id]; ok && cur == s {
		delete(s.driver.sessions, s.id)
	}
	s.driver.mu.Unlock()

	return s.detach()
}

func (s *Session) detach() error {
	if !s.markDetached() {
		return nil
	}
	if err := s.release(); err != nil {
		return fmt.Errorf("could not detach from target: %w", err)
	}
	return nil
}
