package channel

import (
	"encoding/json"
	"fmt"
	"maps"
)

// NotificationType is the message type of out of band notifications. They
// need no response.
const NotificationType = "notification"

// Request is a command sent over the channel.
type Request struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers a request. Result fields are flattened next to id and success.
type Response struct {
	ID      string
	Success bool
	Error   string
	Result  map[string]any
}

// MarshalJSON satisfies json.Marshaler interface.
func (r Response) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Result)+3)
	maps.Copy(m, r.Result)
	m["id"] = r.ID
	m["success"] = r.Success
	if r.Error != "" {
		m["error"] = r.Error
	}
	return json.Marshal(m)
}

// UnmarshalJSON satisfies json.Unmarshaler interface.
func (r *Response) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	res := Response{Result: map[string]any{}}
	for k, v := range m {
		switch k {
		case "id":
			res.ID, _ = v.(string)
		case "success":
			res.Success, _ = v.(bool)
		case "error":
			res.Error, _ = v.(string)
		default:
			res.Result[k] = v
		}
	}
	*r = res
	return nil
}

// Err returns the response error, if any.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Error == "" {
		return fmt.Errorf("command failed")
	}
	return fmt.Errorf("%s", r.Error)
}

// Notification is an out of band message pushed to the other side.
type Notification struct {
	Event   string         `json:"event"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// envelope is any incoming message before it is classified.
type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Params  json.RawMessage `json:"params"`
	Success *bool           `json:"success"`
	Payload json.RawMessage `json:"payload"`
}

type notificationMessage struct {
	Type    string       `json:"type"`
	Payload Notification `json:"payload"`
}
