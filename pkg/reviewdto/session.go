package reviewdto

// SessionState is the dashboard-facing view of a review session.
// CurrentIndex is -1 while no move is selected.
type SessionState struct {
	SessionID    string `json:"session_id"`
	GameID       int64  `json:"game_id"`
	CurrentIndex int    `json:"current_index"`
	TotalMoves   int    `json:"total_moves"`
	Playing      bool   `json:"playing"`
	SpeedMs      int    `json:"speed_ms"`
	FEN          string `json:"fen"`
}

// CreateSessionRequest opens a review session for a recorded game.
type CreateSessionRequest struct {
	GameID int64 `json:"game_id"`
}

// NavRequest applies one navigation operation to a session.
// Index is used by "jump", SpeedMs by "set-speed".
type NavRequest struct {
	Op      string `json:"op"`
	Index   int    `json:"index,omitempty"`
	SpeedMs int    `json:"speed_ms,omitempty"`
}

// PositionResponse is the reconstructed position at one move index.
type PositionResponse struct {
	Index int    `json:"index"`
	FEN   string `json:"fen"`
}
