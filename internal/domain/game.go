package domain

import "time"

// MoveRecord is one half-move of a recorded game. Notation is SAN or UCI
// as stored by the importer; the optional position snapshots come from the
// recording side and are not trusted until validated.
type MoveRecord struct {
	Notation       string    `json:"notation"`
	PositionBefore Position  `json:"position_before,omitempty"`
	PositionAfter  Position  `json:"position_after,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`
}

// GameRecord is a recorded game as persisted by the game store.
type GameRecord struct {
	ID         int64
	White      string
	Black      string
	Result     string
	InitialFEN string
	Moves      []MoveRecord
	PGN        string
	PlayedAt   time.Time
	CreatedAt  time.Time
}

// InitialPosition returns the game's starting position, falling back to
// the standard start when the stored FEN is absent or malformed.
func (g *GameRecord) InitialPosition() Position {
	if g == nil || g.InitialFEN == "" {
		return StartingPosition()
	}
	p, err := ParsePosition(g.InitialFEN)
	if err != nil {
		return StartingPosition()
	}
	return p
}
