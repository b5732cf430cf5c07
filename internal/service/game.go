package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"duel-tracker/internal/api"
	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"
	"duel-tracker/internal/repository"
	"duel-tracker/internal/session"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// GameService owns the open game sessions and keeps them in sync with the
// persistence collaborator. The in-memory session is authoritative: a
// failed save leaves it mutated and surfaces the error, only the persisted
// copy goes stale.
type GameService struct {
	gameRepo   *repository.GameRepository
	playerRepo *repository.PlayerRepository
	matchRepo  *repository.MatchRepository
	registry   *api.RegistryClient
	logger     zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func NewGameService(
	gameRepo *repository.GameRepository,
	playerRepo *repository.PlayerRepository,
	matchRepo *repository.MatchRepository,
	registry *api.RegistryClient,
	logger zerolog.Logger,
) *GameService {
	return &GameService{
		gameRepo:   gameRepo,
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		registry:   registry,
		logger:     logger,
		sessions:   make(map[string]*session.Session),
	}
}

func (s *GameService) CreateGame(ctx context.Context, name string, kFactor int) (domain.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if kFactor <= 0 {
		kFactor = constants.DefaultKFactor
	}

	now := time.Now()
	game := domain.Game{
		ID:        uuid.New().String(),
		Name:      name,
		KFactor:   kFactor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.gameRepo.Create(ctx, &game); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create game")
		return domain.Game{}, fmt.Errorf("failed to create game: %w", err)
	}

	s.mu.Lock()
	s.sessions[game.ID] = session.New(game, s.logger)
	s.mu.Unlock()

	s.logger.Info().Str("game_id", game.ID).Str("name", name).Int("k_factor", kFactor).Msg("game created")
	return game, nil
}

func (s *GameService) ListGames(ctx context.Context) ([]domain.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.gameRepo.List(ctx)
}

// Open returns the live session for a game, loading it from storage on
// first access. Loading re-derives streaks and ranks from the ledger and
// resets the snapshot pair, so state rewritten by another process behind
// our back cannot leave stale derived values.
func (s *GameService) Open(ctx context.Context, gameID string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked(ctx, gameID)
}

func (s *GameService) openLocked(ctx context.Context, gameID string) (*session.Session, error) {
	if sess, ok := s.sessions[gameID]; ok {
		return sess, nil
	}

	game, err := s.gameRepo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	players, err := s.playerRepo.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	matches, err := s.matchRepo.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	sess, skipped := session.Restore(*game, players, matches, s.logger)
	if skipped > 0 {
		s.logger.Warn().Str("game_id", gameID).Int("skipped", skipped).Msg("loaded game with integrity warnings")
	}
	s.sessions[gameID] = sess

	s.logger.Info().
		Str("game_id", gameID).
		Int("players", len(players)).
		Int("matches", len(matches)).
		Msg("game session loaded")
	return sess, nil
}

// AddPlayer creates a roster entry. When the identity registry is
// configured the new entry shares its stable id, so the same person links
// up across games; otherwise a fresh uuid is minted.
func (s *GameService) AddPlayer(ctx context.Context, gameID, name string) (domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	id := ""
	if s.registry.Enabled() {
		registryCtx, registryCancel := context.WithTimeout(ctx, constants.RegistryTimeout)
		resolved, err := s.registry.ResolveIdentity(registryCtx, name)
		registryCancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("name", name).Msg("identity registry lookup failed, minting local id")
		} else {
			id = resolved
		}
	}
	if id == "" {
		id = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openLocked(ctx, gameID)
	if err != nil {
		return domain.Player{}, err
	}
	player, err := sess.AddPlayer(id, name, constants.InitialRating)
	if err != nil {
		return domain.Player{}, err
	}

	if err := s.playerRepo.Upsert(ctx, gameID, &player); err != nil {
		s.logger.Error().Err(err).Str("game_id", gameID).Str("player_id", id).Msg("failed to persist player")
		return player, fmt.Errorf("player added in memory but not saved: %w", err)
	}
	return player, nil
}

// RecordMatch applies one duel result and persists the appended ledger
// entry plus the whole updated roster (ratings, counters, streaks, ranks).
func (s *GameService) RecordMatch(ctx context.Context, gameID, player1ID, player2ID string, outcome domain.Outcome, timestamp time.Time) (domain.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	matchID, err := gonanoid.New()
	if err != nil {
		return domain.MatchRecord{}, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openLocked(ctx, gameID)
	if err != nil {
		return domain.MatchRecord{}, err
	}
	record, err := sess.RecordMatch(matchID, player1ID, player2ID, outcome, timestamp)
	if err != nil {
		return domain.MatchRecord{}, err
	}

	if err := s.matchRepo.Append(ctx, gameID, &record); err != nil {
		s.logger.Error().Err(err).Str("game_id", gameID).Str("match_id", record.ID).Msg("failed to persist match")
		return record, fmt.Errorf("match recorded in memory but not saved: %w", err)
	}
	if err := s.playerRepo.UpsertBatch(ctx, gameID, sess.Roster()); err != nil {
		s.logger.Error().Err(err).Str("game_id", gameID).Msg("failed to persist roster")
		return record, fmt.Errorf("match recorded in memory but roster not saved: %w", err)
	}
	return record, nil
}

// ImportMatches bulk-loads historical records. Records referencing unknown
// players are skipped and counted, never fatal. The roster is re-derived
// wholesale and persisted along with the accepted records.
func (s *GameService) ImportMatches(ctx context.Context, gameID string, records []domain.MatchRecord) (imported, skipped int, err error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	for i := range records {
		if records[i].ID == "" {
			id, idErr := gonanoid.New()
			if idErr != nil {
				return 0, 0, fmt.Errorf("failed to generate nanoid: %w", idErr)
			}
			records[i].ID = id
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openLocked(ctx, gameID)
	if err != nil {
		return 0, 0, err
	}
	imported, skipped = sess.ImportMatches(records)

	if err := s.matchRepo.AppendBatch(ctx, gameID, sess.Ledger()); err != nil {
		s.logger.Error().Err(err).Str("game_id", gameID).Msg("failed to persist imported matches")
		return imported, skipped, fmt.Errorf("import applied in memory but not saved: %w", err)
	}
	if err := s.playerRepo.UpsertBatch(ctx, gameID, sess.Roster()); err != nil {
		s.logger.Error().Err(err).Str("game_id", gameID).Msg("failed to persist roster")
		return imported, skipped, fmt.Errorf("import applied in memory but roster not saved: %w", err)
	}
	return imported, skipped, nil
}

// ClearGame drops a game wholesale: session, roster and ledger. Individual
// records are never deleted; this is the only destructive path.
func (s *GameService) ClearGame(ctx context.Context, gameID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gameRepo.Clear(ctx, gameID); err != nil {
		return err
	}
	delete(s.sessions, gameID)
	return nil
}

// SetKFactor changes a game's K-factor while its ledger is still empty.
func (s *GameService) SetKFactor(ctx context.Context, gameID string, kFactor int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.openLocked(ctx, gameID)
	if err != nil {
		return err
	}
	if err := sess.SetKFactor(kFactor); err != nil {
		return err
	}
	if err := s.gameRepo.UpdateKFactor(ctx, gameID, kFactor); err != nil {
		return fmt.Errorf("k-factor changed in memory but not saved: %w", err)
	}
	return nil
}
