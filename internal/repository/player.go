package repository

import (
	"context"
	"database/sql"
	"fmt"

	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: sqlDB, logger: logger}
}

const upsertPlayerSQL = `
INSERT INTO players (
    game_id, id, name, rating, wins, losses, draws,
    streak_type, streak_length, last_rank, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (game_id, id) DO UPDATE SET
    name = excluded.name,
    rating = excluded.rating,
    wins = excluded.wins,
    losses = excluded.losses,
    draws = excluded.draws,
    streak_type = excluded.streak_type,
    streak_length = excluded.streak_length,
    last_rank = excluded.last_rank,
    updated_at = excluded.updated_at`

func (r *PlayerRepository) Upsert(ctx context.Context, gameID string, player *domain.Player) error {
	_, err := r.db.ExecContext(ctx, upsertPlayerSQL,
		gameID, player.ID, player.Name, player.Rating,
		player.Wins, player.Losses, player.Draws,
		string(player.StreakType), player.StreakLength, player.LastRank,
		player.CreatedAt, player.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

// UpsertBatch writes a whole roster in one transaction.
func (r *PlayerRepository) UpsertBatch(ctx context.Context, gameID string, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(players); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(players) {
			end = len(players)
		}

		for _, p := range players[i:end] {
			_, err := tx.ExecContext(ctx, upsertPlayerSQL,
				gameID, p.ID, p.Name, p.Rating,
				p.Wins, p.Losses, p.Draws,
				string(p.StreakType), p.StreakLength, p.LastRank,
				p.CreatedAt, p.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert player %s: %w", p.ID, err)
			}
		}
	}

	return tx.Commit()
}

func (r *PlayerRepository) GetByGame(ctx context.Context, gameID string) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, rating, wins, losses, draws,
		        streak_type, streak_length, last_rank, created_at, updated_at
		 FROM players WHERE game_id = ? ORDER BY created_at, id`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		var streakType string
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Rating, &p.Wins, &p.Losses, &p.Draws,
			&streakType, &p.StreakLength, &p.LastRank, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		p.StreakType = domain.StreakType(streakType)
		players = append(players, p)
	}
	return players, rows.Err()
}
