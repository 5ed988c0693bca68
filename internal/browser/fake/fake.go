package fake

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

// Evaluator answers the scripts evaluated on a fake tab.
type Evaluator func(tabID, expression string) (any, error)

// DriverConfig is the configuration for the fake driver.
type DriverConfig struct {
	// Evaluator is optional, without it evaluations return nothing.
	Evaluator Evaluator
	Logger    log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "browser.fake.Driver"})
	return nil
}

type tab struct {
	id      string
	history []string
	pos     int
}

func (t *tab) url() string {
	if len(t.history) == 0 {
		return "about:blank"
	}
	return t.history[t.pos]
}

// Driver is a fake implementation of the browser.Driver interface.
// It simulates tabs and sessions in memory and records every input event.
type Driver struct {
	tabs      []*tab // Most recently active first.
	sessions  map[string]*Session
	evaluator Evaluator
	mu        sync.Mutex
	logger    log.Logger
}

// NewDriver creates a new fake driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Driver{
		sessions:  map[string]*Session{},
		evaluator: cfg.Evaluator,
		logger:    cfg.Logger,
	}, nil
}

// SetEvaluator replaces the evaluator.
func (d *Driver) SetEvaluator(e Evaluator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evaluator = e
}

// OpenTab opens a tab as if the user did it and makes it the active one.
func (d *Driver) OpenTab(url string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openTab(url).id
}

func (d *Driver) openTab(url string) *tab {
	t := &tab{id: ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()}
	if url != "" {
		t.history = []string{url}
	}
	d.tabs = append([]*tab{t}, d.tabs...)
	return t
}

func (d *Driver) find(id string) (int, *tab) {
	for i, t := range d.tabs {
		if t.id == id {
			return i, t
		}
	}
	return -1, nil
}

// ListTabs satisfies browser.Driver interface.
func (d *Driver) ListTabs(ctx context.Context) ([]browser.TabInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tabs := make([]browser.TabInfo, 0, len(d.tabs))
	for _, t := range d.tabs {
		tabs = append(tabs, browser.TabInfo{ID: t.id, URL: t.url()})
	}
	return tabs, nil
}

// CreateTab satisfies browser.Driver interface.
func (d *Driver) CreateTab(ctx context.Context, url string) (browser.TabInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.openTab(url)
	d.logger.Debugf("Tab %s created with %s", t.id, url)
	return browser.TabInfo{ID: t.id, URL: t.url()}, nil
}

// CloseTab satisfies browser.Driver interface.
func (d *Driver) CloseTab(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, _ := d.find(id)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", id, model.ErrNotFound)
	}
	d.tabs = slices.Delete(d.tabs, i, i+1)
	if s, ok := d.sessions[id]; ok {
		s.end()
		delete(d.sessions, id)
	}
	return nil
}

// ActivateTab satisfies browser.Driver interface.
func (d *Driver) ActivateTab(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, t := d.find(id)
	if i < 0 {
		return fmt.Errorf("tab %s: %w", id, model.ErrNotFound)
	}
	d.tabs = slices.Delete(d.tabs, i, i+1)
	d.tabs = append([]*tab{t}, d.tabs...)
	return nil
}

// Attach satisfies browser.Driver interface.
func (d *Driver) Attach(ctx context.Context, id string) (browser.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i, _ := d.find(id); i < 0 {
		return nil, fmt.Errorf("tab %s: %w", id, model.ErrNotFound)
	}
	if old, ok := d.sessions[id]; ok {
		old.end()
	}
	s := &Session{tabID: id, driver: d, detached: make(chan struct{}), files: map[string][]string{}}
	d.sessions[id] = s
	return s, nil
}

// ActiveTabID returns the id of the tab that has focus.
func (d *Driver) ActiveTabID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tabs) == 0 {
		return ""
	}
	return d.tabs[0].id
}

// URL returns the current URL of a tab.
func (d *Driver) URL(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, t := d.find(id)
	if t == nil {
		return ""
	}
	return t.url()
}

// HasTab returns true if the tab is open.
func (d *Driver) HasTab(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, _ := d.find(id)
	return i >= 0
}

// KillSession ends the session of a tab from outside, like a user opening devtools.
func (d *Driver) KillSession(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sessions[id]; ok {
		s.end()
		delete(d.sessions, id)
	}
}

// Session returns the current session of a tab.
func (d *Driver) Session(id string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[id]
}

// Session is a fake implementation of the browser.Session interface.
type Session struct {
	tabID    string
	driver   *Driver
	detached chan struct{}
	once     sync.Once

	mouse       []browser.MouseEvent
	keys        []browser.KeyEvent
	files       map[string][]string
	scripts     []string
	screenshots []string // Active tab id at capture time.
}

func (s *Session) end() { s.once.Do(func() { close(s.detached) }) }

func (s *Session) alive() error {
	select {
	case <-s.detached:
		return fmt.Errorf("session on tab %s detached: %w", s.tabID, model.ErrAttachment)
	default:
		return nil
	}
}

// TabID satisfies browser.Session interface.
func (s *Session) TabID() string { return s.tabID }

// Navigate satisfies browser.Session interface.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if err := s.alive(); err != nil {
		return err
	}
	_, t := s.driver.find(s.tabID)
	if t == nil {
		return fmt.Errorf("tab %s: %w", s.tabID, model.ErrNotFound)
	}
	if len(t.history) > 0 {
		t.history = t.history[:t.pos+1]
	}
	t.history = append(t.history, url)
	t.pos = len(t.history) - 1
	return nil
}

func (s *Session) move(delta int) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if err := s.alive(); err != nil {
		return err
	}
	_, t := s.driver.find(s.tabID)
	if t == nil {
		return fmt.Errorf("tab %s: %w", s.tabID, model.ErrNotFound)
	}
	next := t.pos + delta
	if next >= 0 && next < len(t.history) {
		t.pos = next
	}
	return nil
}

// Back satisfies browser.Session interface.
func (s *Session) Back(ctx context.Context) error { return s.move(-1) }

// Forward satisfies browser.Session interface.
func (s *Session) Forward(ctx context.Context) error { return s.move(1) }

// Reload satisfies browser.Session interface.
func (s *Session) Reload(ctx context.Context) error { return s.move(0) }

// Location satisfies browser.Session interface.
func (s *Session) Location(ctx context.Context) (string, error) {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if err := s.alive(); err != nil {
		return "", err
	}
	_, t := s.driver.find(s.tabID)
	if t == nil {
		return "", fmt.Errorf("tab %s: %w", s.tabID, model.ErrNotFound)
	}
	return t.url(), nil
}

// Evaluate satisfies browser.Session interface. The evaluator result goes
// through JSON, like a by value protocol evaluation does.
func (s *Session) Evaluate(ctx context.Context, expression string, out any) error {
	s.driver.mu.Lock()
	if err := s.alive(); err != nil {
		s.driver.mu.Unlock()
		return err
	}
	s.scripts = append(s.scripts, expression)
	eval := s.driver.evaluator
	s.driver.mu.Unlock()

	if eval == nil {
		return nil
	}
	res, err := eval(s.tabID, expression)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("could not marshal evaluation result: %w", err)
	}
	return json.Unmarshal(data, out)
}

// DispatchMouse satisfies browser.Session interface.
func (s *Session) DispatchMouse(ctx context.Context, ev browser.MouseEvent) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if err := s.alive(); err != nil {
		return err
	}
	s.mouse = append(s.mouse, ev)
	return nil
}

// DispatchKey satisfies browser.Session interface.
func (s *Session) DispatchKey(ctx context.Context, ev browser.KeyEvent) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if err := s.alive(); err != nil {
		return err
	}
	s.keys = append(s.keys, ev)
	return nil
}

// SetFiles satisfies browser.Session interface.
func (s *Session) SetFiles(ctx context.Context, selector string, paths []string) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if err := s.alive(); err != nil {
		return err
	}
	s.files[selector] = slices.Clone(paths)
	return nil
}

// Screenshot satisfies browser.Session interface.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	if err := s.alive(); err != nil {
		return nil, err
	}
	active := ""
	if len(s.driver.tabs) > 0 {
		active = s.driver.tabs[0].id
	}
	s.screenshots = append(s.screenshots, active)
	return []byte("png:" + active), nil
}

// Detached satisfies browser.Session interface.
func (s *Session) Detached() <-chan struct{} { return s.detached }

// Detach satisfies browser.Session interface.
func (s *Session) Detach(ctx context.Context) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	s.end()
	if cur, ok := s.driver.sessions[s.tabID]; ok && cur == s {
		delete(s.driver.sessions, s.tabID)
	}
	return nil
}

// MouseEvents returns the dispatched mouse events.
func (s *Session) MouseEvents() []browser.MouseEvent {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	return slices.Clone(s.mouse)
}

// KeyEvents returns the dispatched key events.
func (s *Session) KeyEvents() []browser.KeyEvent {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	return slices.Clone(s.keys)
}

// Files returns the files set on a selector.
func (s *Session) Files(selector string) []string {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	return slices.Clone(s.files[selector])
}

// Scripts returns the evaluated expressions.
func (s *Session) Scripts() []string {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	return slices.Clone(s.scripts)
}

// Screenshots returns, per capture, the tab that was active at that time.
func (s *Session) Screenshots() []string {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	return slices.Clone(s.screenshots)
}
