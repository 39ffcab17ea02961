package replay

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/daehyun-kim/chess-review/internal/domain"
)

// Engine deterministically reconstructs positions by applying recorded
// moves to an initial position. It never returns an error and never
// panics: a move that fails to parse or apply is skipped and the replay
// continues from the last good position.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// ComputePosition returns the position after applying moves[0..index] to
// initial. index < 0 returns initial unchanged. When the terminal step
// carries a validated PositionAfter snapshot it is used directly, which
// avoids cumulative drift against the recording side.
func (e *Engine) ComputePosition(initial domain.Position, moves []domain.MoveRecord, index int) domain.Position {
	if index < 0 {
		return initial
	}

	game := e.gameFrom(initial)
	last := index
	if last > len(moves)-1 {
		last = len(moves) - 1
	}

	for i := 0; i <= last; i++ {
		if i == index {
			if after := moves[i].PositionAfter; e.Validate(after) {
				return after
			}
		}
		if !e.applyMove(game, moves[i].Notation) {
			e.logger.Warn("replay_move_skipped",
				zap.Int("index", i),
				zap.String("notation", moves[i].Notation),
			)
		}
	}

	pos, err := domain.ParsePosition(game.FEN())
	if err != nil {
		// Should be unreachable: the game's own FEN always parses.
		e.logger.Error("replay_fen_roundtrip_failed", zap.String("fen", game.FEN()))
		return initial
	}
	return pos
}

// Validate is a pure legality/structure check for a position.
func (e *Engine) Validate(p domain.Position) bool { return p.Valid() }

// gameFrom builds a game at the given position, falling back to the
// standard start when the position does not parse.
func (e *Engine) gameFrom(initial domain.Position) *nchess.Game {
	if initial.IsZero() || initial.Equal(domain.StartingPosition()) {
		return nchess.NewGame()
	}
	opt, err := initial.GameOption()
	if err != nil {
		e.logger.Warn("replay_bad_initial_position", zap.String("fen", initial.FEN()))
		return nchess.NewGame()
	}
	return nchess.NewGame(opt)
}

// applyMove tries UCI first, then SAN, mirroring how recorded logs mix
// both notations.
func (e *Engine) applyMove(game *nchess.Game, notation string) bool {
	raw := strings.TrimSpace(notation)
	if raw == "" {
		return false
	}
	pos := game.Position()
	if mv, err := (nchess.UCINotation{}).Decode(pos, strings.ToLower(raw)); err == nil {
		if err := game.Move(mv, nil); err == nil {
			return true
		}
	}
	return game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil) == nil
}
