// Package aggregate builds cross-game statistics. It never reads roster
// state: players are matched across games by normalized display name and
// their ratings are replayed from scratch through the rating calculator
// over the selected time window, so the result is a synthetic recomputed
// view, not a merge of per-game rosters.
package aggregate

import (
	"sort"
	"time"

	"duel-tracker/internal/domain"
	"duel-tracker/internal/identity"
	"duel-tracker/internal/rating"

	"github.com/rs/zerolog"
)

// SourceLedger is one game's match list as loaded from storage.
type SourceLedger struct {
	GameName string
	Records  []domain.MatchRecord
}

// Match is a pooled record tagged with the game it came from.
type Match struct {
	GameName string
	domain.MatchRecord
}

// Result is the outcome of one aggregation run. Players are sorted by
// final recomputed rating descending; Matches is the filtered pooled list
// in replay order. Skipped counts records dropped for missing names or
// unknown outcomes.
type Result struct {
	Players []domain.AggregatedPlayer
	Matches []Match
	Skipped int
}

// Aggregator replays pooled matches with a fixed K-factor and initial
// rating, independent of the per-game settings, so ratings from games with
// different K-factors stay comparable.
type Aggregator struct {
	initialRating int
	kFactor       int
	logger        zerolog.Logger
}

func New(initialRating, kFactor int, logger zerolog.Logger) *Aggregator {
	return &Aggregator{initialRating: initialRating, kFactor: kFactor, logger: logger}
}

// Run pools every record inside the window (bounds inclusive), orders them
// by timestamp with pool order breaking ties, and replays them from the
// initial rating. Deterministic for fixed inputs: running it twice yields
// identical results.
func (a *Aggregator) Run(sources []SourceLedger, window domain.TimeSegment) Result {
	var pooled []Match
	skipped := 0
	for _, src := range sources {
		for _, rec := range src.Records {
			if !window.Contains(rec.Timestamp) {
				continue
			}
			if rec.Player1Name == "" || rec.Player2Name == "" || !rec.Outcome.Valid() {
				skipped++
				continue
			}
			pooled = append(pooled, Match{GameName: src.GameName, MatchRecord: rec})
		}
	}
	sort.SliceStable(pooled, func(i, j int) bool {
		return pooled[i].Timestamp.Before(pooled[j].Timestamp)
	})

	byKey := make(map[string]*domain.AggregatedPlayer)
	var order []string

	historySeed := window.Start
	if historySeed.IsZero() {
		// An open-ended window would seed the history with the zero time,
		// which serializes as a nonsense negative epoch value.
		historySeed = time.Unix(0, 0).UTC()
	}

	resolve := func(name string) *domain.AggregatedPlayer {
		key := identity.Normalize(name)
		if p, ok := byKey[key]; ok {
			return p
		}
		p := &domain.AggregatedPlayer{
			Name:           name, // first-seen spelling is canonical
			NormalizedName: key,
			Rating:         a.initialRating,
			RatingHistory:  []domain.RatingPoint{{Timestamp: historySeed, Rating: a.initialRating}},
		}
		byKey[key] = p
		order = append(order, key)
		return p
	}

	for _, m := range pooled {
		p1 := resolve(m.Player1Name)
		p2 := resolve(m.Player2Name)
		if p1 == p2 {
			// Same identity on both sides of a record; nothing sane to replay.
			skipped++
			continue
		}

		res := rating.Calculate(p1.Rating, p2.Rating, m.Outcome, a.kFactor)
		p1.Rating = res.Player1After
		p2.Rating = res.Player2After

		switch m.Outcome {
		case domain.OutcomePlayer1Wins:
			p1.Wins++
			p2.Losses++
		case domain.OutcomePlayer2Wins:
			p1.Losses++
			p2.Wins++
		case domain.OutcomeDraw:
			p1.Draws++
			p2.Draws++
		}
		p1.MatchCount++
		p2.MatchCount++
		addGame(p1, m.GameName)
		addGame(p2, m.GameName)
		p1.RatingHistory = append(p1.RatingHistory, domain.RatingPoint{Timestamp: m.Timestamp, Rating: p1.Rating})
		p2.RatingHistory = append(p2.RatingHistory, domain.RatingPoint{Timestamp: m.Timestamp, Rating: p2.Rating})
	}

	players := make([]domain.AggregatedPlayer, 0, len(order))
	for _, key := range order {
		players = append(players, *byKey[key])
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Rating != players[j].Rating {
			return players[i].Rating > players[j].Rating
		}
		return players[i].NormalizedName < players[j].NormalizedName
	})

	if skipped > 0 {
		a.logger.Warn().
			Int("skipped", skipped).
			Str("window", window.ID).
			Msg("aggregation skipped malformed match records")
	}

	return Result{Players: players, Matches: pooled, Skipped: skipped}
}

func addGame(p *domain.AggregatedPlayer, game string) {
	for _, g := range p.GamesParticipated {
		if g == game {
			return
		}
	}
	p.GamesParticipated = append(p.GamesParticipated, game)
}
