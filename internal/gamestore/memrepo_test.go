package gamestore

import (
	"context"
	"testing"
	"time"

	"github.com/daehyun-kim/chess-review/internal/domain"
)

func sampleGame(white string, playedAt time.Time) *domain.GameRecord {
	return &domain.GameRecord{
		White:  white,
		Black:  "opponent",
		Result: "1-0",
		Moves: []domain.MoveRecord{
			{Notation: "e4"},
			{Notation: "e5"},
			{Notation: "Nf3"},
		},
		PGN:      "1. e4 e5 2. Nf3",
		PlayedAt: playedAt,
	}
}

func TestInsertAndGetGame(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	id, err := repo.InsertGame(ctx, sampleGame("alice", time.Now()))
	if err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	got, err := repo.GetGame(ctx, id)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.White != "alice" || len(got.Moves) != 3 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.Moves[2].Notation != "Nf3" {
		t.Fatalf("move order lost: %+v", got.Moves)
	}
}

func TestInsertNilGameRejected(t *testing.T) {
	repo := NewMemoryRepository()
	if _, err := repo.InsertGame(context.Background(), nil); err != ErrNilGame {
		t.Fatalf("expected ErrNilGame, got %v", err)
	}
}

func TestGetGameNotFound(t *testing.T) {
	repo := NewMemoryRepository()
	if _, err := repo.GetGame(context.Background(), 42); err != ErrGameNotFound {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestListRecentOrdersByPlayedAt(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	if _, err := repo.InsertGame(ctx, sampleGame("oldest", base)); err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	if _, err := repo.InsertGame(ctx, sampleGame("newest", base.Add(2*time.Hour))); err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	if _, err := repo.InsertGame(ctx, sampleGame("middle", base.Add(time.Hour))); err != nil {
		t.Fatalf("InsertGame: %v", err)
	}

	games, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("expected 2 games, got %d", len(games))
	}
	if games[0].White != "newest" || games[1].White != "middle" {
		t.Fatalf("unexpected order: %s, %s", games[0].White, games[1].White)
	}
}
