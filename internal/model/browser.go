package model

// ControlledTab is the single browser tab the system is allowed to drive.
type ControlledTab struct {
	TabID            string `json:"tabId"`
	DebuggerAttached bool   `json:"debuggerAttached"`
	DebuggerTabID    string `json:"debuggerTabId,omitempty"`
}

// BoundingBox is the rendered rectangle of an element in viewport pixels.
type BoundingBox struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
}

// Element is one indexed interactive element of a page snapshot.
type Element struct {
	Index       int         `json:"index"`
	Tag         string      `json:"tag"`
	Type        string      `json:"type,omitempty"`
	Role        string      `json:"role,omitempty"`
	Name        string      `json:"name,omitempty"`
	Value       string      `json:"value,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Disabled    bool        `json:"disabled,omitempty"`
	Checked     bool        `json:"checked,omitempty"`
	Box         BoundingBox `json:"box"`
	InViewport  bool        `json:"inViewport"`
}

// PageSnapshot is the structured view of the controlled tab at one instant.
type PageSnapshot struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	ScrollX        float64   `json:"scrollX"`
	ScrollY        float64   `json:"scrollY"`
	ScrollHeight   float64   `json:"scrollHeight"`
	ViewportWidth  float64   `json:"viewportWidth"`
	ViewportHeight float64   `json:"viewportHeight"`
	Elements       []Element `json:"elements"`
	Screenshot     []byte    `json:"screenshot,omitempty"`
}
