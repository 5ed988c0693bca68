// Package chrome implements the browser driver on top of the Chrome DevTools
// protocol using chromedp.
package chrome

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// DriverConfig is the configuration for the Chrome driver.
type DriverConfig struct {
	// RemoteURL is the DevTools endpoint of a running Chrome. When empty a
	// new Chrome is launched.
	RemoteURL string
	Headless  bool
	Logger    log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "chrome.Driver"})
	return nil
}

// Driver is a browser.Driver backed by chromedp.
type Driver struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	// homeID is the tab chromedp needs to hold the browser connection, it is
	// never exposed as a user tab.
	homeID target.ID
	logger log.Logger

	mu       sync.Mutex
	sessions map[target.ID]*Session
}

// NewDriver connects to (or launches) Chrome.
func NewDriver(ctx context.Context, cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", cfg.Headless))
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("could not connect to chrome: %w", err)
	}

	c := chromedp.FromContext(browserCtx)
	if err := target.SetDiscoverTargets(true).Do(cdp.WithExecutor(browserCtx, c.Browser)); err != nil {
		cancel()
		return nil, fmt.Errorf("could not enable target discovery: %w", err)
	}

	d := &Driver{
		browserCtx: browserCtx,
		cancel:     cancel,
		homeID:     c.Target.TargetID,
		logger:     cfg.Logger,
		sessions:   map[target.ID]*Session{},
	}

	chromedp.ListenBrowser(browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *target.EventTargetDestroyed:
			d.end(e.TargetID, "target destroyed")
		case *target.EventDetachedFromTarget:
			d.endSession(e.SessionID)
		}
	})

	return d, nil
}

// Close releases the browser connection.
func (d *Driver) Close() error {
	d.cancel()
	return nil
}

func (d *Driver) exec() context.Context {
	return cdp.WithExecutor(d.browserCtx, chromedp.FromContext(d.browserCtx).Browser)
}

// bind returns a context that lives under parent and is cancelled with ctx.
func bind(parent, ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// ListTabs satisfies browser.Driver interface.
func (d *Driver) ListTabs(ctx context.Context) ([]browser.TabInfo, error) {
	runCtx, cancel := bind(d.browserCtx, ctx)
	defer cancel()

	infos, err := chromedp.Targets(runCtx)
	if err != nil {
		return nil, fmt.Errorf("could not list targets: %w", err)
	}

	tabs := []browser.TabInfo{}
	for _, info := range infos {
		if info.Type != "page" || info.TargetID == d.homeID {
			continue
		}
		tabs = append(tabs, browser.TabInfo{ID: string(info.TargetID), URL: info.URL, Title: info.Title})
	}
	return tabs, nil
}

// CreateTab satisfies browser.Driver interface.
func (d *Driver) CreateTab(ctx context.Context, url string) (browser.TabInfo, error) {
	runCtx, cancel := bind(d.exec(), ctx)
	defer cancel()

	id, err := target.CreateTarget(url).Do(runCtx)
	if err != nil {
		return browser.TabInfo{}, fmt.Errorf("could not create target: %w", err)
	}
	return browser.TabInfo{ID: string(id), URL: url}, nil
}

// CloseTab satisfies browser.Driver interface.
func (d *Driver) CloseTab(ctx context.Context, id string) error {
	if err := d.exists(ctx, id); err != nil {
		return err
	}

	runCtx, cancel := bind(d.exec(), ctx)
	defer cancel()

	if err := target.CloseTarget(target.ID(id)).Do(runCtx); err != nil {
		return fmt.Errorf("could not close target: %w", err)
	}
	return nil
}

// ActivateTab satisfies browser.Driver interface.
func (d *Driver) ActivateTab(ctx context.Context, id string) error {
	runCtx, cancel := bind(d.exec(), ctx)
	defer cancel()

	if err := target.ActivateTarget(target.ID(id)).Do(runCtx); err != nil {
		return fmt.Errorf("could not activate target: %w", err)
	}
	return nil
}

// Attach satisfies browser.Driver interface.
func (d *Driver) Attach(ctx context.Context, id string) (browser.Session, error) {
	if err := d.exists(ctx, id); err != nil {
		return nil, err
	}

	tabCtx, _ := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(target.ID(id)))
	release := func() error { return releaseTab(tabCtx) }
	runCtx, cancel := bind(tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx); err != nil {
		if rerr := release(); rerr != nil {
			d.logger.Debugf("Could not release tab context of %s: %s", id, rerr)
		}
		return nil, fmt.Errorf("could not attach to target: %w", err)
	}

	s := &Session{
		id:        target.ID(id),
		sessionID: chromedp.FromContext(tabCtx).Target.SessionID,
		driver:    d,
		tabCtx:    tabCtx,
		release:   release,
		detached:  make(chan struct{}),
	}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch ev.(type) {
		case *inspector.EventDetached, *inspector.EventTargetCrashed:
			d.end(s.id, "inspector detached")
		}
	})

	d.mu.Lock()
	old := d.sessions[s.id]
	d.sessions[s.id] = s
	d.mu.Unlock()

	if old != nil {
		if err := old.detach(); err != nil {
			d.logger.Warningf("Could not detach previous session on %s: %s", id, err)
		}
	}

	return s, nil
}

// releaseTab stops the chromedp handler of a tab context and drops its
// listeners. chromedp closes the target of a cancelled context unless its id
// is cleared, so the id is cleared first and only the CDP session is detached.
func releaseTab(tabCtx context.Context) error {
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		c.Target.TargetID = ""
	}
	return chromedp.Cancel(tabCtx)
}

func (d *Driver) exists(ctx context.Context, id string) error {
	tabs, err := d.ListTabs(ctx)
	if err != nil {
		return err
	}
	for _, t := range tabs {
		if t.ID == id {
			return nil
		}
	}
	return fmt.Errorf("tab %s: %w", id, model.ErrNotFound)
}

func (d *Driver) end(id target.ID, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.sessions[id]; ok {
		d.logger.Debugf("Session on %s ended: %s", id, reason)
		s.end()
		delete(d.sessions, id)
	}
}

func (d *Driver) endSession(sid target.SessionID) {
	d.mu.Lock()
	var id target.ID
	for tid, s := range d.sessions {
		if s.sessionID == sid {
			id = tid
			break
		}
	}
	d.mu.Unlock()

	if id != "" {
		d.end(id, "detached from target")
	}
}
