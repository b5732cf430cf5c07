package service

import (
	"context"
	"sync"

	"duel-tracker/internal/aggregate"
	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"
	"duel-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// AggregateService builds the cross-game view. It is a read-only consumer
// of every game's ledger; a ledger that fails to load is skipped with a
// warning and aggregation proceeds over the rest.
type AggregateService struct {
	gameRepo   *repository.GameRepository
	matchRepo  *repository.MatchRepository
	aggregator *aggregate.Aggregator
	logger     zerolog.Logger
}

func NewAggregateService(gameRepo *repository.GameRepository, matchRepo *repository.MatchRepository, logger zerolog.Logger) *AggregateService {
	return &AggregateService{
		gameRepo:   gameRepo,
		matchRepo:  matchRepo,
		aggregator: aggregate.New(constants.InitialRating, constants.DefaultKFactor, logger),
		logger:     logger,
	}
}

// Segments derives the selectable time windows from the union of all
// games' ledgers.
func (s *AggregateService) Segments(ctx context.Context) ([]domain.TimeSegment, error) {
	sources, err := s.loadSources(ctx)
	if err != nil {
		return nil, err
	}

	var pooled []domain.MatchRecord
	for _, src := range sources {
		pooled = append(pooled, src.Records...)
	}
	return aggregate.Segments(pooled), nil
}

// Aggregate recomputes cross-game statistics for the window named by
// segmentID ("" or unknown falls back to all-time).
func (s *AggregateService) Aggregate(ctx context.Context, segmentID string) (aggregate.Result, domain.TimeSegment, error) {
	sources, err := s.loadSources(ctx)
	if err != nil {
		return aggregate.Result{}, domain.TimeSegment{}, err
	}

	var pooled []domain.MatchRecord
	for _, src := range sources {
		pooled = append(pooled, src.Records...)
	}
	window := aggregate.FindSegment(aggregate.Segments(pooled), segmentID)

	res := s.aggregator.Run(sources, window)
	s.logger.Info().
		Str("window", window.ID).
		Int("games", len(sources)).
		Int("matches", len(res.Matches)).
		Int("players", len(res.Players)).
		Msg("aggregation complete")
	return res, window, nil
}

// loadSources fetches every game's ledger in parallel. Individual load
// failures are logged and skipped; order stays deterministic (game list
// order) regardless of completion order.
func (s *AggregateService) loadSources(ctx context.Context) ([]aggregate.SourceLedger, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.AggregateTimeout)
	defer cancel()

	games, err := s.gameRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	sources := make([]aggregate.SourceLedger, len(games))
	var mu sync.Mutex
	loaded := make(map[int]bool, len(games))

	g, gCtx := errgroup.WithContext(ctx)
	for i, game := range games {
		g.Go(func() error {
			records, err := s.matchRepo.GetByGame(gCtx, game.ID)
			if err != nil {
				s.logger.Warn().Err(err).Str("game_id", game.ID).Msg("skipping unreadable ledger")
				return nil // partial failure is non-fatal
			}
			mu.Lock()
			sources[i] = aggregate.SourceLedger{GameName: game.Name, Records: records}
			loaded[i] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]aggregate.SourceLedger, 0, len(sources))
	for i := range sources {
		if loaded[i] {
			out = append(out, sources[i])
		}
	}
	return out, nil
}
