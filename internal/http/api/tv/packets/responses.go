package packets

import (
	"github.com/Nixie-Tech-LLC/vibescreen/internal/display"
	"github.com/Nixie-Tech-LLC/vibescreen/internal/redis"
)

// RESPONSES FOR /api/tv/displays/*

type EventResponse struct {
	Changed bool          `json:"changed"`
	State   display.State `json:"state"`
}

// CachedStateResponse is served for a display this node has not mounted.
type CachedStateResponse struct {
	Mounted    bool             `json:"mounted"`
	NowShowing redis.NowShowing `json:"nowShowing"`
}

// StreamMessage is every frame the display stream sends.
type StreamMessage struct {
	Type    string         `json:"type"`
	State   *display.State `json:"state,omitempty"`
	Changed *bool          `json:"changed,omitempty"`
	Error   string         `json:"error,omitempty"`
}

const (
	StreamState = "state"
	StreamAck   = "ack"
	StreamError = "error"
)
