package glazewm

import (
	"encoding/json"
	"strings"
)

// Event types published by GlazeWM
const (
	EventFocusChanged           = "focus_changed"
	EventFocusedContainerMoved  = "focused_container_moved"
	EventWorkspaceActivated     = "workspace_activated"
	EventWorkspaceDeactivated   = "workspace_deactivated"
	EventWorkspaceUpdated       = "workspace_updated"
	EventWindowManaged          = "window_managed"
	EventWindowUnmanaged        = "window_unmanaged"
	EventTilingDirectionChanged = "tiling_direction_changed"
	EventBindingModesChanged    = "binding_modes_changed"
	EventPauseChanged           = "pause_changed"
)

// TopologyMonitors is the query kind returning the full monitor/workspace/window tree
const TopologyMonitors = "monitors"

// Response is a reply to a query, command or subscribe message
type Response struct {
	MessageType   string          `json:"messageType"`
	ClientMessage string          `json:"clientMessage,omitempty"`
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Err converts an unsuccessful reply into a Rejected error
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	return Rejected(r.Error)
}

// eventFrame is one message on the subscription stream
type eventFrame struct {
	Data struct {
		EventType string `json:"eventType"`
	} `json:"data"`
}

// DecodeResponse parses a reply frame
func DecodeResponse(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &QueryError{Kind: KindDecode, Reason: "malformed response", Err: err}
	}
	return &resp, nil
}

// DecodeEvent extracts the event type tag from a subscription frame
func DecodeEvent(raw []byte) (string, error) {
	var frame eventFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", &QueryError{Kind: KindDecode, Reason: "malformed event", Err: err}
	}
	return frame.Data.EventType, nil
}

// QueryMessage builds "query <kind>"
func QueryMessage(kind string) string {
	return "query " + kind
}

// CommandMessage builds "command <text>"
func CommandMessage(command string) string {
	return "command " + command
}

// SubscribeMessage builds "sub -e <event> <event>..."
func SubscribeMessage(events []string) string {
	return "sub -e " + strings.Join(events, " ")
}
