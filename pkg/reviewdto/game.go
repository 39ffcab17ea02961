package reviewdto

import "time"

// GameSummary is one row of the dashboard's game list.
type GameSummary struct {
	ID        int64     `json:"id"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	Result    string    `json:"result"`
	MoveCount int       `json:"move_count"`
	PlayedAt  time.Time `json:"played_at"`
}

// GameDetail carries the full move log for one recorded game.
type GameDetail struct {
	GameSummary
	InitialFEN string   `json:"initial_fen"`
	Moves      []string `json:"moves"`
	PGN        string   `json:"pgn,omitempty"`
}
