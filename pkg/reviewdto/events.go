package reviewdto

// Event types pushed over the session event stream.
const (
	EventTypeIndexChange = "index_change"
	EventTypePreload     = "preload"
)

// Event is one message on a session's websocket stream.
// IndexChange carries Index; Preload carries Positions.
type Event struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id"`
	Index     int                `json:"index,omitempty"`
	Positions []PositionResponse `json:"positions,omitempty"`
}
