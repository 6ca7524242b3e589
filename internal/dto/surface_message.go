package dto

// SurfaceMessage is pushed to websocket viewers. Type is "state" or "error".
type SurfaceMessage struct {
	Type  string        `json:"type"`
	State *SessionState `json:"state,omitempty"`
	Error string        `json:"error,omitempty"`
}
