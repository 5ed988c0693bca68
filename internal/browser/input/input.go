// Package input turns logical input actions into the protocol events that make
// a page believe a human acted.
package input

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/browser/keymap"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// DefaultScrollAmount is the scroll distance in pixels when none is given.
const DefaultScrollAmount = 500

// Target addresses an element by index, selector or viewport coordinates,
// in that order of precedence.
type Target struct {
	Index    int
	Selector string
	X        float64
	Y        float64
	HasPoint bool
}

// String names the kind of target and its value.
func (t Target) String() string {
	switch {
	case t.Index > 0:
		return fmt.Sprintf("index %d", t.Index)
	case t.Selector != "":
		return fmt.Sprintf("selector %q", t.Selector)
	case t.HasPoint:
		return fmt.Sprintf("coordinates %s,%s", fmtFloat(t.X), fmtFloat(t.Y))
	}
	return "no target"
}

func (t Target) validate() error {
	if t.Index <= 0 && t.Selector == "" && !t.HasPoint {
		return fmt.Errorf("an index, selector or coordinates are required: %w", model.ErrNotValid)
	}
	return nil
}

func notFound(t Target) error {
	return fmt.Errorf("%w (%s)", model.ErrElementNotFound, t)
}

// IndexResolver resolves element indexes against a freshly rebuilt index map.
type IndexResolver interface {
	Resolve(ctx context.Context, s browser.Session, index int) (string, error)
}

// SynthesizerConfig is the configuration for the Synthesizer.
type SynthesizerConfig struct {
	Resolver IndexResolver
	// MinDelay and MaxDelay bound the random wait between the phases of a
	// coordinate click.
	MinDelay time.Duration
	MaxDelay time.Duration
	Sleep    browser.SleepFunc
	Logger   log.Logger
}

func (c *SynthesizerConfig) defaults() error {
	if c.Resolver == nil {
		return fmt.Errorf("index resolver is required")
	}
	if c.MinDelay == 0 {
		c.MinDelay = 20 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 80 * time.Millisecond
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("max delay can't be lower than min delay")
	}
	if c.Sleep == nil {
		c.Sleep = browser.Sleep
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "input.Synthesizer"})
	return nil
}

// Synthesizer is the input synthesizer.
type Synthesizer struct {
	resolver IndexResolver
	minDelay time.Duration
	maxDelay time.Duration
	sleep    browser.SleepFunc
	logger   log.Logger
}

// NewSynthesizer returns a new input synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) (*Synthesizer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Synthesizer{
		resolver: cfg.Resolver,
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		sleep:    cfg.Sleep,
		logger:   cfg.Logger,
	}, nil
}

// Click clicks a target. Coordinates get a move, press and release with
// random pauses, elements get a scroll into view, focus and DOM click events.
func (s *Synthesizer) Click(ctx context.Context, sess browser.Session, t Target) browser.ActionResult {
	return result(s.click(ctx, sess, t), map[string]any{"target": t.String()})
}

func (s *Synthesizer) click(ctx context.Context, sess browser.Session, t Target) error {
	if err := t.validate(); err != nil {
		return err
	}

	if t.Index <= 0 && t.Selector == "" {
		return s.clickPoint(ctx, sess, t)
	}

	sel, err := s.selector(ctx, sess, t)
	if err != nil {
		return err
	}
	var f found
	if err := sess.Evaluate(ctx, clickScript(sel), &f); err != nil {
		return fmt.Errorf("could not click: %w", err)
	}
	if !f.Found {
		return notFound(t)
	}
	return nil
}

func (s *Synthesizer) clickPoint(ctx context.Context, sess browser.Session, t Target) error {
	var f found
	if err := sess.Evaluate(ctx, pointScript(t.X, t.Y), &f); err != nil {
		return fmt.Errorf("could not inspect point: %w", err)
	}
	if !f.Found {
		return notFound(t)
	}

	events := []browser.MouseEvent{
		{Type: browser.MouseMoved, X: t.X, Y: t.Y, Button: browser.MouseButtonNone},
		{Type: browser.MousePressed, X: t.X, Y: t.Y, Button: browser.MouseButtonLeft, ClickCount: 1},
		{Type: browser.MouseReleased, X: t.X, Y: t.Y, Button: browser.MouseButtonLeft, ClickCount: 1},
	}
	for i, ev := range events {
		if i > 0 {
			if err := s.sleep(ctx, s.delay()); err != nil {
				return err
			}
		}
		if err := sess.DispatchMouse(ctx, ev); err != nil {
			return fmt.Errorf("could not dispatch %s: %w", ev.Type, err)
		}
	}
	return nil
}

// Type types text in a target. Form fields get their value through the
// native setter, anything without one gets protocol key events per character.
func (s *Synthesizer) Type(ctx context.Context, sess browser.Session, t Target, text string) browser.ActionResult {
	return result(s.typeText(ctx, sess, t, text), map[string]any{"target": t.String()})
}

func (s *Synthesizer) typeText(ctx context.Context, sess browser.Session, t Target, text string) error {
	if err := t.validate(); err != nil {
		return err
	}

	if t.Index <= 0 && t.Selector == "" {
		if err := s.clickPoint(ctx, sess, t); err != nil {
			return err
		}
		return s.typeKeys(ctx, sess, text)
	}

	sel, err := s.selector(ctx, sess, t)
	if err != nil {
		return err
	}

	status, err := SetNativeValue(ctx, sess, sel, text)
	if err != nil {
		return err
	}
	switch status {
	case NativeOK:
		return nil
	case NativeNotFound:
		return notFound(t)
	}

	s.logger.Debugf("No native value setter on %s, typing with key events", t)
	var f found
	if err := sess.Evaluate(ctx, focusScript(sel), &f); err != nil {
		return fmt.Errorf("could not focus: %w", err)
	}
	if !f.Found {
		return notFound(t)
	}
	return s.typeKeys(ctx, sess, text)
}

func (s *Synthesizer) typeKeys(ctx context.Context, sess browser.Session, text string) error {
	for _, r := range text {
		k, res := keymap.Resolve(r)
		switch res {
		case keymap.ResolutionUnmapped:
			s.logger.Warningf("Character %q is not in the key table, sending it with a zero key code", r)
		case keymap.ResolutionUppercase:
			s.logger.Debugf("Character %q mapped through its uppercase form", r)
		}
		if err := s.pressKey(ctx, sess, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synthesizer) pressKey(ctx context.Context, sess browser.Session, k keymap.Key) error {
	var mods int64
	if k.Shift {
		mods = browser.ModifierShift
	}

	down := browser.KeyEvent{Type: browser.KeyDown, Key: k.Key, Code: k.Code, Text: k.Text, VirtualKeyCode: k.VirtualKeyCode, Modifiers: mods}
	up := browser.KeyEvent{Type: browser.KeyUp, Key: k.Key, Code: k.Code, VirtualKeyCode: k.VirtualKeyCode, Modifiers: mods}
	if err := sess.DispatchKey(ctx, down); err != nil {
		return fmt.Errorf("could not dispatch key down: %w", err)
	}
	if err := sess.DispatchKey(ctx, up); err != nil {
		return fmt.Errorf("could not dispatch key up: %w", err)
	}
	return nil
}

// Hover moves the mouse over a target.
func (s *Synthesizer) Hover(ctx context.Context, sess browser.Session, t Target) browser.ActionResult {
	return result(s.hover(ctx, sess, t), map[string]any{"target": t.String()})
}

func (s *Synthesizer) hover(ctx context.Context, sess browser.Session, t Target) error {
	if err := t.validate(); err != nil {
		return err
	}

	x, y := t.X, t.Y
	if t.Index > 0 || t.Selector != "" {
		sel, err := s.selector(ctx, sess, t)
		if err != nil {
			return err
		}
		var f found
		if err := sess.Evaluate(ctx, centerScript(sel), &f); err != nil {
			return fmt.Errorf("could not locate element: %w", err)
		}
		if !f.Found {
			return notFound(t)
		}
		x, y = f.X, f.Y
	}

	if err := sess.DispatchMouse(ctx, browser.MouseEvent{Type: browser.MouseMoved, X: x, Y: y, Button: browser.MouseButtonNone}); err != nil {
		return fmt.Errorf("could not dispatch mouse move: %w", err)
	}
	return nil
}

// Scroll scrolls the page with a wheel event at the viewport center.
// Direction is one of up, down, left or right.
func (s *Synthesizer) Scroll(ctx context.Context, sess browser.Session, direction string, amount int) browser.ActionResult {
	if amount <= 0 {
		amount = DefaultScrollAmount
	}
	return result(s.scroll(ctx, sess, direction, amount), map[string]any{"direction": direction, "amount": amount})
}

func (s *Synthesizer) scroll(ctx context.Context, sess browser.Session, direction string, amount int) error {
	var dx, dy float64
	switch strings.ToLower(direction) {
	case "down", "":
		dy = float64(amount)
	case "up":
		dy = -float64(amount)
	case "right":
		dx = float64(amount)
	case "left":
		dx = -float64(amount)
	default:
		return fmt.Errorf("unknown scroll direction %q: %w", direction, model.ErrNotValid)
	}

	var vp viewport
	if err := sess.Evaluate(ctx, viewportScript, &vp); err != nil {
		return fmt.Errorf("could not get viewport: %w", err)
	}

	ev := browser.MouseEvent{Type: browser.MouseWheel, X: vp.Width / 2, Y: vp.Height / 2, Button: browser.MouseButtonNone, DeltaX: dx, DeltaY: dy}
	if err := sess.DispatchMouse(ctx, ev); err != nil {
		return fmt.Errorf("could not dispatch mouse wheel: %w", err)
	}
	return nil
}

// SendKeys presses a named key (enter, escape, tab, backspace, delete, arrows, space).
func (s *Synthesizer) SendKeys(ctx context.Context, sess browser.Session, name string) browser.ActionResult {
	k, ok := keymap.Named(name)
	if !ok {
		return browser.Fail(fmt.Errorf("unsupported key %q, supported keys: %s: %w", name, strings.Join(keymap.NamedKeys(), ", "), model.ErrNotValid))
	}
	return result(s.pressKey(ctx, sess, k), map[string]any{"key": k.Key})
}

// UploadFile sets the files of a file input at the protocol level. Pages
// can't set `.files` from scripts.
func (s *Synthesizer) UploadFile(ctx context.Context, sess browser.Session, t Target, path string) browser.ActionResult {
	return result(s.uploadFile(ctx, sess, t, path), map[string]any{"target": t.String(), "path": path})
}

func (s *Synthesizer) uploadFile(ctx context.Context, sess browser.Session, t Target, path string) error {
	if err := t.validate(); err != nil {
		return err
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("file path %q must be absolute: %w", path, model.ErrNotValid)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file %q: %w", path, model.ErrNotFound)
		}
		return fmt.Errorf("could not stat file: %w", err)
	}

	sel, err := s.selector(ctx, sess, t)
	if err != nil {
		return err
	}
	if err := sess.SetFiles(ctx, sel, []string{path}); err != nil {
		return fmt.Errorf("could not set files: %w", err)
	}
	return nil
}

// selector turns any target into a selector that matches a live element.
func (s *Synthesizer) selector(ctx context.Context, sess browser.Session, t Target) (string, error) {
	switch {
	case t.Index > 0:
		sel, err := s.resolver.Resolve(ctx, sess, t.Index)
		if err != nil {
			if errors.Is(err, model.ErrElementNotFound) {
				return "", err
			}
			return "", fmt.Errorf("could not resolve index: %w", err)
		}
		return sel, nil
	case t.Selector != "":
		var f found
		if err := sess.Evaluate(ctx, existsScript(t.Selector), &f); err != nil {
			return "", fmt.Errorf("could not query selector: %w", err)
		}
		if !f.Found {
			return "", notFound(t)
		}
		return t.Selector, nil
	}

	var f found
	if err := sess.Evaluate(ctx, pointScript(t.X, t.Y), &f); err != nil {
		return "", fmt.Errorf("could not inspect point: %w", err)
	}
	if !f.Found {
		return "", notFound(t)
	}
	return pointSelector, nil
}

func (s *Synthesizer) delay() time.Duration {
	span := s.maxDelay - s.minDelay
	if span <= 0 {
		return s.minDelay
	}
	return s.minDelay + rand.N(span)
}

func result(err error, data map[string]any) browser.ActionResult {
	if err != nil {
		return browser.Fail(err)
	}
	return browser.OK(data)
}
