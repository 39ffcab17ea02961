package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
)

// StartingFEN is the standard initial chess position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrInvalidPosition = errors.New("invalid position")

// chess/v2's FEN decoder writes package-level scratch buffers, so every
// decode in the process must hold this lock. All parsing in this module
// goes through decodeFEN; nothing else may call nchess.FEN directly.
var fenMu sync.Mutex

func decodeFEN(fen string) (func(*nchess.Game), error) {
	fenMu.Lock()
	defer fenMu.Unlock()
	return nchess.FEN(fen)
}

// Position is a tagged snapshot of full game state, carried as FEN.
// The zero value is invalid; use ParsePosition or StartingPosition.
type Position struct {
	fen string
}

// ParsePosition validates fen and returns a Position.
func ParsePosition(fen string) (Position, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" {
		return Position{}, ErrInvalidPosition
	}
	if _, err := decodeFEN(fen); err != nil {
		return Position{}, ErrInvalidPosition
	}
	return Position{fen: fen}, nil
}

// StartingPosition returns the standard initial position.
func StartingPosition() Position {
	return Position{fen: StartingFEN}
}

// FEN returns the raw FEN string ("" for the zero value).
func (p Position) FEN() string { return p.fen }

// IsZero reports whether the position carries no data at all.
func (p Position) IsZero() bool { return p.fen == "" }

// Valid is a pure structural check: the FEN must parse. It never panics
// and is safe to call from any goroutine.
func (p Position) Valid() bool {
	if p.fen == "" {
		return false
	}
	_, err := decodeFEN(p.fen)
	return err == nil
}

// GameOption returns a chess game option that starts play from p,
// decoding under the same lock as every other parse.
func (p Position) GameOption() (func(*nchess.Game), error) {
	return decodeFEN(p.fen)
}

// Equal compares two positions by their FEN encoding.
func (p Position) Equal(other Position) bool { return p.fen == other.fen }

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.fen)
}

// UnmarshalJSON accepts any string; validity is re-checked by consumers
// via Valid, so a malformed stored FEN loads without failing the record.
func (p *Position) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	p.fen = strings.TrimSpace(s)
	return nil
}
