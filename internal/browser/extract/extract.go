// Package extract builds indexed snapshots of the interactive elements of a page.
package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/peebo/peebo/internal/browser"
	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
)

const maxInnerTextName = 80

type rawCandidate struct {
	Key            int     `json:"k"`
	Tag            string  `json:"tag"`
	Type           string  `json:"type"`
	Role           string  `json:"role"`
	Display        string  `json:"display"`
	Visibility     string  `json:"visibility"`
	Opacity        float64 `json:"opacity"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Disabled       bool    `json:"disabled"`
	Required       bool    `json:"required"`
	Checked        bool    `json:"checked"`
	Value          string  `json:"value"`
	Placeholder    string  `json:"placeholder"`
	AriaLabel      string  `json:"ariaLabel"`
	LabelledBy     string  `json:"labelledBy"`
	LabelFor       string  `json:"labelFor"`
	EnclosingLabel string  `json:"enclosingLabel"`
	Alt            string  `json:"alt"`
	Title          string  `json:"title"`
	InnerText      string  `json:"innerText"`
}

type rawPage struct {
	URL            string         `json:"url"`
	Title          string         `json:"title"`
	ScrollX        float64        `json:"scrollX"`
	ScrollY        float64        `json:"scrollY"`
	ScrollHeight   float64        `json:"scrollHeight"`
	ViewportWidth  float64        `json:"viewportWidth"`
	ViewportHeight float64        `json:"viewportHeight"`
	Candidates     []rawCandidate `json:"candidates"`
}

// IndexMap maps the indexes of one snapshot to element selectors. It is only
// valid until the next action runs on the page.
type IndexMap struct {
	selectors map[int]string
}

// Selector returns the selector of an index.
func (m *IndexMap) Selector(index int) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m.selectors[index]
	return s, ok
}

// Len returns the number of indexed elements.
func (m *IndexMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.selectors)
}

// ExtractorConfig is the configuration for the Extractor.
type ExtractorConfig struct {
	// ScreenshotDelay is the wait between re-activating the tab and capturing it.
	ScreenshotDelay time.Duration
	Sleep           browser.SleepFunc
	Logger          log.Logger
}

func (c *ExtractorConfig) defaults() error {
	if c.ScreenshotDelay == 0 {
		c.ScreenshotDelay = 300 * time.Millisecond
	}
	if c.Sleep == nil {
		c.Sleep = browser.Sleep
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "extract.Extractor"})
	return nil
}

// Extractor is the page extractor.
type Extractor struct {
	screenshotDelay time.Duration
	sleep           browser.SleepFunc
	logger          log.Logger
}

// NewExtractor returns a new page extractor.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Extractor{
		screenshotDelay: cfg.ScreenshotDelay,
		sleep:           cfg.Sleep,
		logger:          cfg.Logger,
	}, nil
}

// Extract walks the page and returns the snapshot of its visible, enabled
// interactive elements numbered 1..N in DOM order, with the index map to act on them.
func (e *Extractor) Extract(ctx context.Context, s browser.Session) (model.PageSnapshot, *IndexMap, error) {
	var page rawPage
	if err := s.Evaluate(ctx, collectScript, &page); err != nil {
		return model.PageSnapshot{}, nil, fmt.Errorf("could not collect page elements: %w", err)
	}

	snap := model.PageSnapshot{
		URL:            page.URL,
		Title:          page.Title,
		ScrollX:        page.ScrollX,
		ScrollY:        page.ScrollY,
		ScrollHeight:   page.ScrollHeight,
		ViewportWidth:  page.ViewportWidth,
		ViewportHeight: page.ViewportHeight,
		Elements:       []model.Element{},
	}
	idx := &IndexMap{selectors: map[int]string{}}

	for _, c := range page.Candidates {
		if !c.visible() || c.Disabled || c.Type == "hidden" {
			continue
		}

		index := len(snap.Elements) + 1
		snap.Elements = append(snap.Elements, c.toElement(index, page.ViewportWidth, page.ViewportHeight))
		idx.selectors[index] = CandidateSelector(c.Key)
	}

	return snap, idx, nil
}

// Resolve rebuilds the index map and returns the selector of an index.
func (e *Extractor) Resolve(ctx context.Context, s browser.Session, index int) (string, error) {
	_, idx, err := e.Extract(ctx, s)
	if err != nil {
		return "", err
	}

	sel, ok := idx.Selector(index)
	if !ok {
		return "", fmt.Errorf("%w (index %d)", model.ErrElementNotFound, index)
	}
	return sel, nil
}

// Screenshot re-activates the tab, waits briefly and captures it. Without
// the activation the capture targets whatever tab had focus last.
func (e *Extractor) Screenshot(ctx context.Context, s browser.Session, activate func(ctx context.Context) error) ([]byte, error) {
	if activate != nil {
		if err := activate(ctx); err != nil {
			return nil, fmt.Errorf("could not activate tab: %w", err)
		}
		if err := e.sleep(ctx, e.screenshotDelay); err != nil {
			return nil, err
		}
	}

	img, err := s.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not capture screenshot: %w", err)
	}
	return img, nil
}

// CandidateSelector returns the selector of a tagged candidate.
func CandidateSelector(key int) string {
	return `[` + candidateAttr + `="` + strconv.Itoa(key) + `"]`
}

func (c rawCandidate) visible() bool {
	if c.Display == "none" || c.Visibility == "hidden" || c.Visibility == "collapse" {
		return false
	}
	if c.Opacity <= 0 {
		return false
	}
	return c.Width > 0 && c.Height > 0
}

func (c rawCandidate) toElement(index int, vw, vh float64) model.Element {
	box := model.BoundingBox{
		X:       c.X,
		Y:       c.Y,
		Width:   c.Width,
		Height:  c.Height,
		CenterX: c.X + c.Width/2,
		CenterY: c.Y + c.Height/2,
	}

	return model.Element{
		Index:       index,
		Tag:         c.Tag,
		Type:        c.Type,
		Role:        c.role(),
		Name:        c.name(),
		Value:       c.Value,
		Placeholder: c.Placeholder,
		Required:    c.Required,
		Disabled:    c.Disabled,
		Checked:     c.Checked,
		Box:         box,
		InViewport:  c.X+c.Width > 0 && c.Y+c.Height > 0 && c.X < vw && c.Y < vh,
	}
}

func (c rawCandidate) role() string {
	if c.Role != "" {
		return c.Role
	}

	switch c.Tag {
	case "a":
		return "link"
	case "button":
		return "button"
	case "textarea":
		return "textbox"
	case "select":
		return "combobox"
	case "input":
		switch c.Type {
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "submit", "button", "reset", "image":
			return "button"
		case "range":
			return "slider"
		case "file":
			return "button"
		}
		return "textbox"
	}
	return ""
}

// name resolves the accessible name following aria-label, aria-labelledby,
// label[for], enclosing label minus own value, alt/title/placeholder and
// finally short inner text.
func (c rawCandidate) name() string {
	if n := clean(c.AriaLabel); n != "" {
		return n
	}
	if n := clean(c.LabelledBy); n != "" {
		return n
	}
	if n := clean(c.LabelFor); n != "" {
		return n
	}
	if enc := c.EnclosingLabel; enc != "" {
		if c.Value != "" {
			enc = strings.Replace(enc, c.Value, "", 1)
		}
		if n := clean(enc); n != "" {
			return n
		}
	}
	for _, v := range []string{c.Alt, c.Title, c.Placeholder} {
		if n := clean(v); n != "" {
			return n
		}
	}
	if n := clean(c.InnerText); n != "" && utf8.RuneCountInString(n) <= maxInnerTextName {
		return n
	}
	return ""
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
