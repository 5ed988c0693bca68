// Package control has the closed set of browser control commands and their
// dispatcher.
package control

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/peebo/peebo/internal/browser/input"
	"github.com/peebo/peebo/internal/model"
)

// Type is the wire name of a command.
type Type string

const (
	TypePing            Type = "ping"
	TypeAttachActiveTab Type = "attach_active_tab"
	TypeNavigate        Type = "navigate"
	TypeClick           Type = "click"
	TypeType            Type = "type"
	TypeHover           Type = "hover"
	TypeExtractDOM      Type = "extract_dom"
	TypeExecuteScript   Type = "execute_script"
	TypeScroll          Type = "scroll"
	TypeSendKeys        Type = "send_keys"
	TypeGoBack          Type = "go_back"
	TypeGoForward       Type = "go_forward"
	TypeRefresh         Type = "refresh"
	TypeGetURL          Type = "get_url"
	TypeDetachTab       Type = "detach_tab"
	TypeCleanupAll      Type = "cleanup_all"
	TypeUploadFile      Type = "upload_file"
)

// Types returns every command type.
func Types() []Type {
	return []Type{
		TypePing, TypeAttachActiveTab, TypeNavigate, TypeClick, TypeType, TypeHover,
		TypeExtractDOM, TypeExecuteScript, TypeScroll, TypeSendKeys, TypeGoBack,
		TypeGoForward, TypeRefresh, TypeGetURL, TypeDetachTab, TypeCleanupAll, TypeUploadFile,
	}
}

// Command is one browser control command. The set is closed: only the types
// of this package implement it.
type Command interface {
	Type() Type
	command()
}

type (
	Ping            struct{}
	AttachActiveTab struct{}
	Navigate        struct{ URL string }
	Click           struct{ Target input.Target }
	TypeText        struct {
		Target input.Target
		Text   string
	}
	Hover      struct{ Target input.Target }
	ExtractDOM struct {
		// Screenshot also captures the controlled tab.
		Screenshot bool
	}
	ExecuteScript struct{ Script string }
	Scroll        struct {
		Direction string
		Amount    int
	}
	SendKeys   struct{ Key string }
	GoBack     struct{}
	GoForward  struct{}
	Refresh    struct{}
	GetURL     struct{}
	DetachTab  struct{}
	CleanupAll struct{}
	UploadFile struct {
		Target input.Target
		Path   string
	}
)

func (Ping) Type() Type            { return TypePing }
func (AttachActiveTab) Type() Type { return TypeAttachActiveTab }
func (Navigate) Type() Type        { return TypeNavigate }
func (Click) Type() Type           { return TypeClick }
func (TypeText) Type() Type        { return TypeType }
func (Hover) Type() Type           { return TypeHover }
func (ExtractDOM) Type() Type      { return TypeExtractDOM }
func (ExecuteScript) Type() Type   { return TypeExecuteScript }
func (Scroll) Type() Type          { return TypeScroll }
func (SendKeys) Type() Type        { return TypeSendKeys }
func (GoBack) Type() Type          { return TypeGoBack }
func (GoForward) Type() Type       { return TypeGoForward }
func (Refresh) Type() Type         { return TypeRefresh }
func (GetURL) Type() Type          { return TypeGetURL }
func (DetachTab) Type() Type       { return TypeDetachTab }
func (CleanupAll) Type() Type      { return TypeCleanupAll }
func (UploadFile) Type() Type      { return TypeUploadFile }

func (Ping) command()            {}
func (AttachActiveTab) command() {}
func (Navigate) command()        {}
func (Click) command()           {}
func (TypeText) command()        {}
func (Hover) command()           {}
func (ExtractDOM) command()      {}
func (ExecuteScript) command()   {}
func (Scroll) command()          {}
func (SendKeys) command()        {}
func (GoBack) command()          {}
func (GoForward) command()       {}
func (Refresh) command()         {}
func (GetURL) command()          {}
func (DetachTab) command()       {}
func (CleanupAll) command()      {}
func (UploadFile) command()      {}

// params is the union of every command parameter on the wire.
type params struct {
	URL        string   `json:"url"`
	Index      int      `json:"index"`
	Selector   string   `json:"selector"`
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Text       string   `json:"text"`
	Script     string   `json:"script"`
	Direction  string   `json:"direction"`
	Amount     int      `json:"amount"`
	Key        string   `json:"key"`
	Keys       string   `json:"keys"`
	Path       string   `json:"path"`
	FilePath   string   `json:"filePath"`
	Screenshot bool     `json:"screenshot"`
}

func (p params) target() input.Target {
	t := input.Target{Index: p.Index, Selector: p.Selector}
	if p.X != nil && p.Y != nil {
		t.X, t.Y, t.HasPoint = *p.X, *p.Y, true
	}
	return t
}

// Parse decodes a command from its wire type and params. Unknown types
// return model.ErrUnknownCommand.
func Parse(typ string, raw json.RawMessage) (Command, error) {
	var p params
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid %s params: %w: %w", typ, model.ErrNotValid, err)
		}
	}

	switch Type(typ) {
	case TypePing:
		return Ping{}, nil
	case TypeAttachActiveTab:
		return AttachActiveTab{}, nil
	case TypeNavigate:
		if strings.TrimSpace(p.URL) == "" {
			return nil, fmt.Errorf("url is required: %w", model.ErrNotValid)
		}
		return Navigate{URL: p.URL}, nil
	case TypeClick:
		return Click{Target: p.target()}, nil
	case TypeType:
		return TypeText{Target: p.target(), Text: p.Text}, nil
	case TypeHover:
		return Hover{Target: p.target()}, nil
	case TypeExtractDOM:
		return ExtractDOM{Screenshot: p.Screenshot}, nil
	case TypeExecuteScript:
		if strings.TrimSpace(p.Script) == "" {
			return nil, fmt.Errorf("script is required: %w", model.ErrNotValid)
		}
		return ExecuteScript{Script: p.Script}, nil
	case TypeScroll:
		return Scroll{Direction: p.Direction, Amount: p.Amount}, nil
	case TypeSendKeys:
		key := p.Key
		if key == "" {
			key = p.Keys
		}
		return SendKeys{Key: key}, nil
	case TypeGoBack:
		return GoBack{}, nil
	case TypeGoForward:
		return GoForward{}, nil
	case TypeRefresh:
		return Refresh{}, nil
	case TypeGetURL:
		return GetURL{}, nil
	case TypeDetachTab:
		return DetachTab{}, nil
	case TypeCleanupAll:
		return CleanupAll{}, nil
	case TypeUploadFile:
		path := p.Path
		if path == "" {
			path = p.FilePath
		}
		return UploadFile{Target: p.target(), Path: path}, nil
	}

	return nil, fmt.Errorf("%w: %s", model.ErrUnknownCommand, typ)
}
