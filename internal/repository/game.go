package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"duel-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type GameRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGameRepository(sqlDB *sql.DB, logger zerolog.Logger) *GameRepository {
	return &GameRepository{db: sqlDB, logger: logger}
}

func (r *GameRepository) Create(ctx context.Context, game *domain.Game) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO games (id, name, k_factor, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		game.ID, game.Name, game.KFactor, game.CreatedAt, game.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

func (r *GameRepository) Get(ctx context.Context, gameID string) (*domain.Game, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, k_factor, created_at, updated_at FROM games WHERE id = ?`,
		gameID,
	)

	var g domain.Game
	if err := row.Scan(&g.ID, &g.Name, &g.KFactor, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return &g, nil
}

func (r *GameRepository) List(ctx context.Context) ([]domain.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, k_factor, created_at, updated_at FROM games ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		var g domain.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.KFactor, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (r *GameRepository) UpdateKFactor(ctx context.Context, gameID string, kFactor int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET k_factor = ?, updated_at = ? WHERE id = ?`,
		kFactor, time.Now(), gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to update k-factor: %w", err)
	}
	return nil
}

// Clear deletes a game and, via cascade, its roster and ledger. This is the
// only destructive operation the store offers; individual records are never
// edited or removed.
func (r *GameRepository) Clear(ctx context.Context, gameID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, gameID)
	if err != nil {
		return fmt.Errorf("failed to clear game: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return domain.ErrGameNotFound
	}
	r.logger.Info().Str("game_id", gameID).Msg("game cleared")
	return nil
}
