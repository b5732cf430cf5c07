package repository

import (
	"context"
	"database/sql"
	"fmt"

	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: sqlDB, logger: logger}
}

const insertMatchSQL = `
INSERT INTO matches (
    id, game_id, seq, timestamp,
    player1_id, player2_id, player1_name, player2_name,
    player1_before, player2_before, player1_after, player2_after,
    outcome, player1_change, player2_change, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

func (r *MatchRepository) Append(ctx context.Context, gameID string, record *domain.MatchRecord) error {
	id := record.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		record.ID = id
	}

	_, err := r.db.ExecContext(ctx, insertMatchSQL,
		id, gameID, record.Seq, record.Timestamp,
		record.Player1ID, record.Player2ID, record.Player1Name, record.Player2Name,
		record.Player1Before, record.Player2Before, record.Player1After, record.Player2After,
		string(record.Outcome), record.Player1Change, record.Player2Change, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append match: %w", err)
	}
	return nil
}

// AppendBatch writes many ledger entries in one transaction, minting ids
// for records that lack one.
func (r *MatchRepository) AppendBatch(ctx context.Context, gameID string, records []domain.MatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(records); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(records) {
			end = len(records)
		}

		for _, m := range records[i:end] {
			id := m.ID
			if id == "" {
				id, err = gonanoid.New()
				if err != nil {
					return fmt.Errorf("failed to generate nanoid: %w", err)
				}
			}
			_, err := tx.ExecContext(ctx, insertMatchSQL,
				id, gameID, m.Seq, m.Timestamp,
				m.Player1ID, m.Player2ID, m.Player1Name, m.Player2Name,
				m.Player1Before, m.Player2Before, m.Player1After, m.Player2After,
				string(m.Outcome), m.Player1Change, m.Player2Change, m.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to append match %s: %w", id, err)
			}
		}
	}

	return tx.Commit()
}

// GetByGame returns a game's full ledger in replay order. Legacy rows with
// NULL change columns get them derived from the before/after audit fields.
func (r *MatchRepository) GetByGame(ctx context.Context, gameID string) ([]domain.MatchRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, seq, timestamp,
		        player1_id, player2_id, player1_name, player2_name,
		        player1_before, player2_before, player1_after, player2_after,
		        outcome, player1_change, player2_change, created_at
		 FROM matches WHERE game_id = ? ORDER BY timestamp, seq`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var records []domain.MatchRecord
	for rows.Next() {
		var m domain.MatchRecord
		var outcome string
		var change1, change2 sql.NullInt64
		if err := rows.Scan(
			&m.ID, &m.Seq, &m.Timestamp,
			&m.Player1ID, &m.Player2ID, &m.Player1Name, &m.Player2Name,
			&m.Player1Before, &m.Player2Before, &m.Player1After, &m.Player2After,
			&outcome, &change1, &change2, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Outcome = domain.Outcome(outcome)
		if change1.Valid {
			m.Player1Change = int(change1.Int64)
		} else {
			m.Player1Change = m.Player1After - m.Player1Before
		}
		if change2.Valid {
			m.Player2Change = int(change2.Int64)
		} else {
			m.Player2Change = m.Player2After - m.Player2Before
		}
		records = append(records, m)
	}
	return records, rows.Err()
}
