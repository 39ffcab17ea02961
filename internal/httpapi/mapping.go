package httpapi

import (
	"github.com/daehyun-kim/chess-review/internal/domain"
	"github.com/daehyun-kim/chess-review/internal/session"
	"github.com/daehyun-kim/chess-review/pkg/reviewdto"
)

func toSessionState(snap session.Snapshot) reviewdto.SessionState {
	return reviewdto.SessionState{
		SessionID:    snap.SessionID,
		GameID:       snap.GameID,
		CurrentIndex: snap.Nav.CurrentIndex,
		TotalMoves:   snap.Nav.TotalMoves,
		Playing:      snap.Nav.Playing,
		SpeedMs:      snap.Nav.SpeedMs,
		FEN:          snap.Position.FEN(),
	}
}

func toGameSummary(g *domain.GameRecord) reviewdto.GameSummary {
	return reviewdto.GameSummary{
		ID:        g.ID,
		White:     g.White,
		Black:     g.Black,
		Result:    g.Result,
		MoveCount: len(g.Moves),
		PlayedAt:  g.PlayedAt,
	}
}

func toGameDetail(g *domain.GameRecord) reviewdto.GameDetail {
	moves := make([]string, 0, len(g.Moves))
	for _, m := range g.Moves {
		moves = append(moves, m.Notation)
	}
	return reviewdto.GameDetail{
		GameSummary: toGameSummary(g),
		InitialFEN:  g.InitialFEN,
		Moves:       moves,
		PGN:         g.PGN,
	}
}
