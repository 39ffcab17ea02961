package gamestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/daehyun-kim/chess-review/internal/domain"
)

// postgres is the production repository. Moves are stored as jsonb so the
// optional per-move snapshots survive round-trips unchanged.
type postgres struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL required for postgres game store")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &postgres{db: db}, nil
}

func (r *postgres) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *postgres) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, ErrNilGame
	}
	moves, err := json.Marshal(game.Moves)
	if err != nil {
		return 0, fmt.Errorf("marshal moves: %w", err)
	}

	const query = `
		INSERT INTO game_records (
			white_name,
			black_name,
			result,
			initial_fen,
			moves,
			pgn,
			played_at
		)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		RETURNING id`

	var id int64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.White,
		game.Black,
		game.Result,
		game.InitialFEN,
		moves,
		game.PGN,
		game.PlayedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert game record: %w", err)
	}
	return id, nil
}

func (r *postgres) GetGame(ctx context.Context, id int64) (*domain.GameRecord, error) {
	const query = `
		SELECT
			id,
			white_name,
			black_name,
			result,
			initial_fen,
			moves,
			pgn,
			played_at,
			created_at
		FROM game_records
		WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	game, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game record: %w", err)
	}
	return game, nil
}

func (r *postgres) ListRecent(ctx context.Context, limit int) ([]*domain.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT
			id,
			white_name,
			black_name,
			result,
			initial_fen,
			moves,
			pgn,
			played_at,
			created_at
		FROM game_records
		ORDER BY played_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list game records: %w", err)
	}
	defer rows.Close()

	var games []*domain.GameRecord
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game record: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.GameRecord, error) {
	var (
		game     domain.GameRecord
		rawMoves []byte
	)
	err := row.Scan(
		&game.ID,
		&game.White,
		&game.Black,
		&game.Result,
		&game.InitialFEN,
		&rawMoves,
		&game.PGN,
		&game.PlayedAt,
		&game.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawMoves) > 0 {
		if err := json.Unmarshal(rawMoves, &game.Moves); err != nil {
			return nil, fmt.Errorf("unmarshal moves: %w", err)
		}
	}
	return &game, nil
}
