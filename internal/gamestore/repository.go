package gamestore

import (
	"context"
	"errors"

	"github.com/daehyun-kim/chess-review/internal/domain"
)

var (
	ErrGameNotFound = errors.New("game record not found")
	ErrNilGame      = errors.New("nil game record")
)

// Repository provides access to recorded games consumed by review
// sessions and the dashboard's game list.
type Repository interface {
	InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error)
	GetGame(ctx context.Context, id int64) (*domain.GameRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.GameRecord, error)
	Close() error
}
