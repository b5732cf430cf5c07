// Package session holds the in-memory state of one loaded game: the player
// roster, the append-only match ledger, the locked K-factor and the
// leaderboard snapshot pair. A Session is an explicit value created per
// game; nothing here is package-global, so multiple games can be open at
// once without shared state.
package session

import (
	"sort"
	"sync"
	"time"

	"duel-tracker/internal/domain"
	"duel-tracker/internal/identity"
	"duel-tracker/internal/rating"

	"github.com/rs/zerolog"
)

// A Session is shared between the serving goroutines: read handlers walk
// the roster and ledger while recorders mutate them, so every exported
// method guards the state with mu. Unexported helpers assume the lock is
// already held.
type Session struct {
	mu       sync.RWMutex
	game     domain.Game
	players  map[string]*domain.Player
	order    []string // roster insertion order, rank tie-breaker
	ledger   []domain.MatchRecord
	nextSeq  int64
	snapshot *Snapshot
	logger   zerolog.Logger
}

// New creates an empty session for a game.
func New(game domain.Game, logger zerolog.Logger) *Session {
	s := &Session{
		game:    game,
		players: make(map[string]*domain.Player),
		logger:  logger,
	}
	s.snapshot = NewSnapshot(s.ratings(), s.ranks())
	return s
}

// Restore rebuilds a session from persisted state. Streaks and ranks are
// re-derived wholesale rather than trusted from the stored copy, since the
// stored state may have been rewritten by another process. The snapshot
// pair resets to the current ratings so the first display shows no delta.
// Records referencing players missing from the roster, or carrying an
// unknown outcome, are dropped; the returned count reports how many.
func Restore(game domain.Game, players []domain.Player, matches []domain.MatchRecord, logger zerolog.Logger) (*Session, int) {
	s := &Session{
		game:    game,
		players: make(map[string]*domain.Player, len(players)),
		order:   make([]string, 0, len(players)),
		logger:  logger,
	}
	for i := range players {
		p := players[i]
		s.players[p.ID] = &p
		s.order = append(s.order, p.ID)
	}

	skipped := 0
	for _, m := range matches {
		if _, ok := s.players[m.Player1ID]; !ok {
			skipped++
			continue
		}
		if _, ok := s.players[m.Player2ID]; !ok {
			skipped++
			continue
		}
		if !m.Outcome.Valid() {
			skipped++
			continue
		}
		m.Seq = s.nextSeq
		s.nextSeq++
		// Legacy records may lack the derived change fields.
		if m.Player1Change == 0 && m.Player2Change == 0 && m.Player1After != m.Player1Before {
			m.Player1Change = m.Player1After - m.Player1Before
			m.Player2Change = m.Player2After - m.Player2Before
		}
		s.ledger = append(s.ledger, m)
	}
	if skipped > 0 {
		logger.Warn().
			Str("game_id", game.ID).
			Int("skipped", skipped).
			Msg("dropped match records with unknown players or outcomes")
	}

	s.rederive()
	s.snapshot = NewSnapshot(s.ratings(), s.ranks())
	return s, skipped
}

// Game returns the session's game metadata.
func (s *Session) Game() domain.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game
}

// SetKFactor changes the game's K-factor. Rejected once any match exists,
// since recorded audit fields would no longer match the formula.
func (s *Session) SetKFactor(k int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ledger) > 0 {
		return domain.ErrKFactorLocked
	}
	s.game.KFactor = k
	return nil
}

// AddPlayer creates a roster entry starting at the initial rating. The id is
// caller-supplied so it can be shared with the external identity registry.
// Names are unique per game under identity normalization.
func (s *Session) AddPlayer(id, name string, initialRating int) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.players[id]; exists {
		return domain.Player{}, domain.ErrDuplicateName
	}
	key := identity.Normalize(name)
	for _, existing := range s.players {
		if identity.Normalize(existing.Name) == key {
			return domain.Player{}, domain.ErrDuplicateName
		}
	}

	now := time.Now()
	p := &domain.Player{
		ID:        id,
		Name:      name,
		Rating:    initialRating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.players[id] = p
	s.order = append(s.order, id)
	s.assignRanks()

	s.logger.Debug().
		Str("game_id", s.game.ID).
		Str("player_id", id).
		Str("name", name).
		Msg("player added to roster")

	return *p, nil
}

// RecordMatch validates and applies one duel result: rating update, ledger
// append with before/after audit fields, counter update, streak replay for
// both players and a global rank pass. On any validation error nothing is
// mutated.
func (s *Session) RecordMatch(matchID, player1ID, player2ID string, outcome domain.Outcome, timestamp time.Time) (domain.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if player1ID == player2ID {
		return domain.MatchRecord{}, domain.ErrSamePlayer
	}
	if !outcome.Valid() {
		return domain.MatchRecord{}, domain.ErrInvalidOutcome
	}
	p1, ok := s.players[player1ID]
	if !ok {
		return domain.MatchRecord{}, domain.ErrUnknownPlayer
	}
	p2, ok := s.players[player2ID]
	if !ok {
		return domain.MatchRecord{}, domain.ErrUnknownPlayer
	}

	res := rating.Calculate(p1.Rating, p2.Rating, outcome, s.game.KFactor)

	now := time.Now()
	record := domain.MatchRecord{
		ID:            matchID,
		Seq:           s.nextSeq,
		Timestamp:     timestamp,
		Player1ID:     p1.ID,
		Player2ID:     p2.ID,
		Player1Name:   p1.Name,
		Player2Name:   p2.Name,
		Player1Before: p1.Rating,
		Player2Before: p2.Rating,
		Player1After:  res.Player1After,
		Player2After:  res.Player2After,
		Outcome:       outcome,
		Player1Change: res.Player1Change,
		Player2Change: res.Player2Change,
		CreatedAt:     now,
	}
	s.nextSeq++
	s.ledger = append(s.ledger, record)

	p1.Rating = res.Player1After
	p2.Rating = res.Player2After
	switch outcome {
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
	p1.UpdatedAt = now
	p2.UpdatedAt = now

	ordered := s.orderedLedger()
	p1.StreakType, p1.StreakLength = DeriveStreak(ordered, p1.ID)
	p2.StreakType, p2.StreakLength = DeriveStreak(ordered, p2.ID)
	s.assignRanks()

	s.logger.Info().
		Str("game_id", s.game.ID).
		Str("match_id", record.ID).
		Str("player1", p1.Name).
		Str("player2", p2.Name).
		Str("outcome", string(outcome)).
		Int("player1_change", record.Player1Change).
		Int("player2_change", record.Player2Change).
		Msg("match recorded")

	return record, nil
}

// ImportMatches appends historical records in bulk. Records referencing
// unknown players or carrying an unknown outcome are skipped and counted,
// everything else is appended, then counters, ratings, streaks and ranks
// are re-derived from the full ledger rather than patched incrementally.
func (s *Session) ImportMatches(records []domain.MatchRecord) (imported, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range records {
		if _, ok := s.players[m.Player1ID]; !ok {
			skipped++
			continue
		}
		if _, ok := s.players[m.Player2ID]; !ok {
			skipped++
			continue
		}
		if !m.Outcome.Valid() {
			skipped++
			continue
		}
		m.Seq = s.nextSeq
		s.nextSeq++
		if m.Player1Change == 0 && m.Player2Change == 0 && m.Player1After != m.Player1Before {
			m.Player1Change = m.Player1After - m.Player1Before
			m.Player2Change = m.Player2After - m.Player2Before
		}
		s.ledger = append(s.ledger, m)
		imported++
	}

	s.rederive()

	s.logger.Info().
		Str("game_id", s.game.ID).
		Int("imported", imported).
		Int("skipped", skipped).
		Msg("bulk import applied")

	return imported, skipped
}

// Roster returns a copy of all roster entries sorted by rank.
func (s *Session) Roster() []domain.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Player, 0, len(s.players))
	for _, id := range s.order {
		out = append(out, *s.players[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}

// Player returns a copy of one roster entry.
func (s *Session) Player(id string) (domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return domain.Player{}, domain.ErrUnknownPlayer
	}
	return *p, nil
}

// Ledger returns a copy of all match records in replay order
// (timestamp ascending, insertion order on ties).
func (s *Session) Ledger() []domain.MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedLedger()
}

// PlayerHistory returns the player's matches in replay order.
func (s *Session) PlayerHistory(playerID string) []domain.MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.MatchRecord
	for _, m := range s.orderedLedger() {
		if m.Player1ID == playerID || m.Player2ID == playerID {
			out = append(out, m)
		}
	}
	return out
}

// AdvanceSnapshot shifts the snapshot pair: last becomes previous, current
// roster state becomes last. This is the only way the displayed delta
// moves; recording matches never touches it.
func (s *Session) AdvanceSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Advance(s.ratings(), s.ranks())
	s.logger.Debug().Str("game_id", s.game.ID).Msg("leaderboard snapshot advanced")
}

// SnapshotDelta returns the frozen display delta for a player.
func (s *Session) SnapshotDelta(playerID string) (Delta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Delta(playerID)
}

// rederive recomputes every derived structure (counters, ratings, streaks,
// ranks) from the ledger. Called after any wholesale ledger change.
func (s *Session) rederive() {
	for _, p := range s.players {
		p.Wins, p.Losses, p.Draws = 0, 0, 0
	}

	ordered := s.orderedLedger()
	for _, m := range ordered {
		p1 := s.players[m.Player1ID]
		p2 := s.players[m.Player2ID]
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
		// Audit fields carry the authoritative post-match ratings.
		p1.Rating = m.Player1After
		p2.Rating = m.Player2After
	}

	for _, p := range s.players {
		p.StreakType, p.StreakLength = DeriveStreak(ordered, p.ID)
	}
	s.assignRanks()
}

// assignRanks sorts the roster by rating descending and stores each
// player's rank. Ties are broken by roster insertion order so the result
// is deterministic.
func (s *Session) assignRanks() {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	sort.SliceStable(ids, func(i, j int) bool {
		return s.players[ids[i]].Rating > s.players[ids[j]].Rating
	})
	for i, id := range ids {
		s.players[id].LastRank = i + 1
	}
}

func (s *Session) orderedLedger() []domain.MatchRecord {
	out := make([]domain.MatchRecord, len(s.ledger))
	copy(out, s.ledger)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (s *Session) ratings() map[string]int {
	out := make(map[string]int, len(s.players))
	for id, p := range s.players {
		out[id] = p.Rating
	}
	return out
}

func (s *Session) ranks() map[string]int {
	out := make(map[string]int, len(s.players))
	for id, p := range s.players {
		out[id] = p.LastRank
	}
	return out
}
