// Package browser has the abstractions used to drive a browser through a
// debugging protocol.
package browser

import (
	"context"
)

// TabInfo describes one browser tab.
type TabInfo struct {
	ID    string
	URL   string
	Title string
}

// MouseEventType is the protocol mouse event type.
type MouseEventType string

const (
	MouseMoved    MouseEventType = "mouseMoved"
	MousePressed  MouseEventType = "mousePressed"
	MouseReleased MouseEventType = "mouseReleased"
	MouseWheel    MouseEventType = "mouseWheel"
)

// MouseButton is the protocol mouse button.
type MouseButton string

const (
	MouseButtonNone MouseButton = "none"
	MouseButtonLeft MouseButton = "left"
)

// MouseEvent is a protocol level mouse event in viewport coordinates.
type MouseEvent struct {
	Type       MouseEventType
	X          float64
	Y          float64
	Button     MouseButton
	ClickCount int64
	DeltaX     float64
	DeltaY     float64
}

// KeyEventType is the protocol key event type.
type KeyEventType string

const (
	KeyDown KeyEventType = "keyDown"
	KeyUp   KeyEventType = "keyUp"
	KeyChar KeyEventType = "char"
)

// ModifierShift is the protocol bit for the shift modifier.
const ModifierShift int64 = 8

// KeyEvent is a protocol level key event.
type KeyEvent struct {
	Type           KeyEventType
	Key            string
	Code           string
	Text           string
	VirtualKeyCode int64
	Modifiers      int64
}

// Driver manages the tabs of a browser.
type Driver interface {
	// ListTabs returns the page tabs, the most recently active first.
	ListTabs(ctx context.Context) ([]TabInfo, error)
	CreateTab(ctx context.Context, url string) (TabInfo, error)
	CloseTab(ctx context.Context, id string) error
	ActivateTab(ctx context.Context, id string) error
	// Attach opens a debugging session on a tab. Returns model.ErrNotFound
	// when the tab does not exist anymore.
	Attach(ctx context.Context, id string) (Session, error)
}

// Session is a debugging session attached to one tab.
type Session interface {
	TabID() string
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	Forward(ctx context.Context) error
	Reload(ctx context.Context) error
	Location(ctx context.Context) (string, error)
	// Evaluate runs a JS expression and decodes its JSON serializable result in out.
	// Promises are awaited.
	Evaluate(ctx context.Context, expression string, out any) error
	DispatchMouse(ctx context.Context, ev MouseEvent) error
	DispatchKey(ctx context.Context, ev KeyEvent) error
	// SetFiles sets the files of a file input at the protocol level.
	SetFiles(ctx context.Context, selector string, paths []string) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Detached is closed when the session ends, for whatever reason.
	Detached() <-chan struct{}
	Detach(ctx context.Context) error
}

// ActionResult is the outcome of a browser action. Actions never return Go
// errors across component boundaries, they report them here.
type ActionResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"-"`
}

// OK returns a successful result with optional data.
func OK(data map[string]any) ActionResult {
	return ActionResult{Success: true, Data: data}
}

// Fail returns a failed result from an error.
func Fail(err error) ActionResult {
	if err == nil {
		return ActionResult{Success: true}
	}
	return ActionResult{Success: false, Error: err.Error()}
}
