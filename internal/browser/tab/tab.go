// Package tab owns the single browser tab automation is allowed to drive.
package tab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/conventions"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// ControllerConfig is the configuration for the Controller.
type ControllerConfig struct {
	Driver browser.Driver
	// SettleDelay is the wait after issuing a navigation.
	SettleDelay time.Duration
	Sleep       browser.SleepFunc
	Logger      log.Logger
}

func (c *ControllerConfig) defaults() error {
	if c.Driver == nil {
		return fmt.Errorf("browser driver is required")
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 1500 * time.Millisecond
	}
	if c.Sleep == nil {
		c.Sleep = browser.Sleep
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tab.Controller"})
	return nil
}

// Controller serializes all automation to one tab and manages its debugging
// session. At most one session is attached at any time.
//
// States: unattached (session == nil) and attached (session != nil). The
// controlled tab id survives detaches so it can be reused.
type Controller struct {
	driver      browser.Driver
	settleDelay time.Duration
	sleep       browser.SleepFunc
	logger      log.Logger

	mu      sync.Mutex
	tabID   string
	session browser.Session
	owned   map[string]struct{}
}

// NewController returns a new tab controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Controller{
		driver:      cfg.Driver,
		settleDelay: cfg.SettleDelay,
		sleep:       cfg.Sleep,
		logger:      cfg.Logger,
		owned:       map[string]struct{}{},
	}, nil
}

// State returns the controlled tab state.
func (c *Controller) State() model.ControlledTab {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Controller) state() model.ControlledTab {
	c.prune()
	st := model.ControlledTab{TabID: c.tabID}
	if c.session != nil {
		st.DebuggerAttached = true
		st.DebuggerTabID = c.session.TabID()
	}
	return st
}

// AttachActive attaches to the tab that currently has focus.
func (c *Controller) AttachActive(ctx context.Context) (model.ControlledTab, error) {
	tabs, err := c.driver.ListTabs(ctx)
	if err != nil {
		return model.ControlledTab{}, fmt.Errorf("could not list tabs: %w", err)
	}
	if len(tabs) == 0 {
		return model.ControlledTab{}, fmt.Errorf("no open tabs: %w", model.ErrAttachment)
	}
	return c.Attach(ctx, tabs[0].ID)
}

// Attach makes a tab the controlled one and attaches a session to it. Any
// previous session is detached first.
func (c *Controller) Attach(ctx context.Context, tabID string) (model.ControlledTab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.attach(ctx, tabID); err != nil {
		return c.state(), err
	}
	return c.state(), nil
}

// prune forgets a session that ended but has not been observed by watch yet.
func (c *Controller) prune() {
	if c.session == nil {
		return
	}
	select {
	case <-c.session.Detached():
		c.session = nil
	default:
	}
}

func (c *Controller) attach(ctx context.Context, tabID string) error {
	c.prune()
	if c.session != nil {
		if c.session.TabID() == tabID {
			return nil
		}
		c.detach(ctx)
	}

	s, err := c.driver.Attach(ctx, tabID)
	if err != nil {
		c.logger.Errorf("Could not attach to tab %s: %s", tabID, err)
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("tab %s is gone: %w: %w", tabID, model.ErrAttachment, model.ErrNotFound)
		}
		return fmt.Errorf("could not attach to tab %s: %w: %w", tabID, model.ErrAttachment, err)
	}

	c.tabID = tabID
	c.session = s
	go c.watch(s)
	c.logger.Infof("Attached to tab %s", tabID)

	return nil
}

// watch observes the session end. Closing the tab or opening devtools ends
// sessions from outside and the controller has to accept it.
func (c *Controller) watch(s browser.Session) {
	<-s.Detached()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s {
		c.session = nil
		c.logger.Warningf("Session on tab %s detached externally", s.TabID())
	}
}

// Detach detaches the current session if any.
func (c *Controller) Detach(ctx context.Context) model.ControlledTab {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detach(ctx)
	return c.state()
}

func (c *Controller) detach(ctx context.Context) {
	if c.session == nil {
		return
	}
	s := c.session
	c.session = nil
	if err := s.Detach(ctx); err != nil {
		c.logger.Warningf("Could not detach from tab %s: %s", s.TabID(), err)
	}
}

// Navigate loads a URL in the controlled tab, creating one if there is none
// or the previous one no longer exists, and waits the settle delay.
func (c *Controller) Navigate(ctx context.Context, rawURL string) (model.ControlledTab, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return model.ControlledTab{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.navigate(ctx, u); err != nil {
		return c.state(), err
	}
	if err := c.sleep(ctx, c.settleDelay); err != nil {
		return c.state(), err
	}
	return c.state(), nil
}

func (c *Controller) navigate(ctx context.Context, u string) error {
	if c.tabID != "" {
		err := c.attach(ctx, c.tabID)
		if err == nil {
			err = c.session.Navigate(ctx, u)
			if err == nil {
				return nil
			}
		}
		if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("could not navigate: %w", err)
		}
		c.logger.Warningf("Controlled tab %s can't be reused, opening a new one: %s", c.tabID, err)
		c.detach(ctx)
		delete(c.owned, c.tabID)
		c.tabID = ""
	}

	t, err := c.driver.CreateTab(ctx, u)
	if err != nil {
		return fmt.Errorf("could not create tab: %w", err)
	}
	c.owned[t.ID] = struct{}{}
	return c.attach(ctx, t.ID)
}

// Do runs fn with the attached session while holding the controller. Every
// page action goes through here so actions never interleave.
func (c *Controller) Do(ctx context.Context, fn func(ctx context.Context, s browser.Session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune()
	if c.session == nil {
		if c.tabID == "" {
			return fmt.Errorf("no controlled tab, attach or navigate first: %w", model.ErrAttachment)
		}
		if err := c.attach(ctx, c.tabID); err != nil {
			return err
		}
	}
	return fn(ctx, c.session)
}

// Back goes back in the controlled tab history.
func (c *Controller) Back(ctx context.Context) error {
	return c.Do(ctx, func(ctx context.Context, s browser.Session) error {
		if err := s.Back(ctx); err != nil {
			return err
		}
		return c.sleep(ctx, c.settleDelay)
	})
}

// Forward goes forward in the controlled tab history.
func (c *Controller) Forward(ctx context.Context) error {
	return c.Do(ctx, func(ctx context.Context, s browser.Session) error {
		if err := s.Forward(ctx); err != nil {
			return err
		}
		return c.sleep(ctx, c.settleDelay)
	})
}

// Reload reloads the controlled tab.
func (c *Controller) Reload(ctx context.Context) error {
	return c.Do(ctx, func(ctx context.Context, s browser.Session) error {
		if err := s.Reload(ctx); err != nil {
			return err
		}
		return c.sleep(ctx, c.settleDelay)
	})
}

// URL returns the current URL of the controlled tab.
func (c *Controller) URL(ctx context.Context) (string, error) {
	var u string
	err := c.Do(ctx, func(ctx context.Context, s browser.Session) error {
		var err error
		u, err = s.Location(ctx)
		return err
	})
	return u, err
}

func (c *Controller) activate(ctx context.Context) error {
	if c.tabID == "" {
		return fmt.Errorf("no controlled tab: %w", model.ErrAttachment)
	}
	return c.driver.ActivateTab(ctx, c.tabID)
}

// ActivateFunc returns a function that activates the controlled tab, safe to
// call from inside Do.
func (c *Controller) ActivateFunc() func(ctx context.Context) error {
	return func(ctx context.Context) error { return c.activate(ctx) }
}

// Cleanup detaches, closes every tab opened by the controller other than the
// controlled one and resets the controlled tab to a blank page. It keeps going
// on failures and returns all of them joined.
func (c *Controller) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	c.prune()
	if c.tabID != "" {
		if c.session == nil {
			if err := c.attach(ctx, c.tabID); err != nil {
				errs = append(errs, fmt.Errorf("reset controlled tab: %w", err))
			}
		}
		if c.session != nil {
			if err := c.session.Navigate(ctx, conventions.BlankPage); err != nil {
				errs = append(errs, fmt.Errorf("reset controlled tab: %w", err))
			}
		}
	}

	c.detach(ctx)

	for id := range c.owned {
		if id == c.tabID {
			continue
		}
		if err := c.driver.CloseTab(ctx, id); err != nil && !errors.Is(err, model.ErrNotFound) {
			errs = append(errs, fmt.Errorf("close tab %s: %w", id, err))
			continue
		}
		delete(c.owned, id)
	}

	err := errors.Join(errs...)
	if err != nil {
		c.logger.Warningf("Cleanup finished with errors: %s", err)
	}
	return err
}

// NormalizeURL prefixes scheme-less URLs with https://.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required: %w", model.ErrNotValid)
	}
	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "about:") && !strings.HasPrefix(raw, "data:") {
		raw = "https://" + raw
	}
	if _, err := url.Parse(raw); err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, model.ErrNotValid)
	}
	return raw, nil
}
