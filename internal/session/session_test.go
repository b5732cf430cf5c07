package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return New(domain.Game{ID: "g1", Name: "Game of Stick", KFactor: 60}, zerolog.Nop())
}

func addPlayer(t *testing.T, s *Session, id, name string) domain.Player {
	t.Helper()
	p, err := s.AddPlayer(id, name, constants.InitialRating)
	require.NoError(t, err)
	return p
}

func ts(minute int) time.Time {
	return time.Date(2024, time.March, 10, 12, minute, 0, 0, time.UTC)
}

func TestAddPlayerDuplicateName(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Émile")

	_, err := s.AddPlayer("p2", " emile ", constants.InitialRating)
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
	assert.Len(t, s.Roster(), 1)
}

func TestRecordMatchUpdatesRatingsAndLedger(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	record, err := s.RecordMatch("m1", "p1", "p2", domain.OutcomePlayer1Wins, ts(0))
	require.NoError(t, err)

	assert.Equal(t, 1200, record.Player1Before)
	assert.Equal(t, 1200, record.Player2Before)
	assert.Equal(t, 1230, record.Player1After)
	assert.Equal(t, 1170, record.Player2After)
	assert.Equal(t, 30, record.Player1Change)
	assert.Equal(t, -30, record.Player2Change)
	assert.Zero(t, record.Player1Change+record.Player2Change)

	p1, err := s.Player("p1")
	require.NoError(t, err)
	assert.Equal(t, 1230, p1.Rating)
	assert.Equal(t, 1, p1.Wins)
	assert.Equal(t, domain.StreakWin, p1.StreakType)
	assert.Equal(t, 1, p1.StreakLength)
	assert.Equal(t, 1, p1.LastRank)

	p2, err := s.Player("p2")
	require.NoError(t, err)
	assert.Equal(t, 1170, p2.Rating)
	assert.Equal(t, 1, p2.Losses)
	assert.Equal(t, 2, p2.LastRank)

	assert.Len(t, s.Ledger(), 1)
}

func TestRecordMatchSymmetricRoundTrip(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	_, err := s.RecordMatch("m1", "p1", "p2", domain.OutcomePlayer1Wins, ts(0))
	require.NoError(t, err)
	_, err = s.RecordMatch("m2", "p1", "p2", domain.OutcomePlayer2Wins, ts(1))
	require.NoError(t, err)

	p1, _ := s.Player("p1")
	p2, _ := s.Player("p2")
	assert.Equal(t, 1200, p1.Rating)
	assert.Equal(t, 1200, p2.Rating)
}

func TestRecordMatchValidation(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	_, err := s.RecordMatch("m1", "p1", "p1", domain.OutcomePlayer1Wins, ts(0))
	assert.ErrorIs(t, err, domain.ErrSamePlayer)

	_, err = s.RecordMatch("m2", "p1", "ghost", domain.OutcomePlayer1Wins, ts(0))
	assert.ErrorIs(t, err, domain.ErrUnknownPlayer)

	_, err = s.RecordMatch("m3", "p1", "p2", domain.Outcome("p1_stomps"), ts(0))
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)

	// Nothing mutated by the rejected calls.
	assert.Empty(t, s.Ledger())
	p1, _ := s.Player("p1")
	assert.Equal(t, 1200, p1.Rating)
	assert.Zero(t, p1.MatchCount())
}

func TestSetKFactorLockedAfterFirstMatch(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	require.NoError(t, s.SetKFactor(40))
	assert.Equal(t, 40, s.Game().KFactor)

	_, err := s.RecordMatch("m1", "p1", "p2", domain.OutcomeDraw, ts(0))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetKFactor(20), domain.ErrKFactorLocked)
	assert.Equal(t, 40, s.Game().KFactor)
}

func TestStreakReplay(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	outcomes := []domain.Outcome{
		domain.OutcomePlayer1Wins,
		domain.OutcomePlayer1Wins,
		domain.OutcomePlayer2Wins,
		domain.OutcomePlayer1Wins,
		domain.OutcomePlayer1Wins,
		domain.OutcomePlayer1Wins,
	}
	for i, o := range outcomes {
		_, err := s.RecordMatch("m", "p1", "p2", o, ts(i))
		require.NoError(t, err)
	}

	p1, _ := s.Player("p1")
	assert.Equal(t, domain.StreakWin, p1.StreakType)
	assert.Equal(t, 3, p1.StreakLength)

	p2, _ := s.Player("p2")
	assert.Equal(t, domain.StreakLoss, p2.StreakType)
	assert.Equal(t, 3, p2.StreakLength)
}

func TestStreakDrawResets(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	_, err := s.RecordMatch("m1", "p1", "p2", domain.OutcomePlayer1Wins, ts(0))
	require.NoError(t, err)
	_, err = s.RecordMatch("m2", "p1", "p2", domain.OutcomeDraw, ts(1))
	require.NoError(t, err)

	p1, _ := s.Player("p1")
	assert.Equal(t, domain.StreakNone, p1.StreakType)
	assert.Zero(t, p1.StreakLength)
}

func TestStreakReplayUsesTimestampOrder(t *testing.T) {
	// Records appended out of chronological order still replay by timestamp.
	records := []domain.MatchRecord{
		{Seq: 0, Timestamp: ts(5), Player1ID: "p1", Player2ID: "p2", Outcome: domain.OutcomePlayer2Wins},
		{Seq: 1, Timestamp: ts(1), Player1ID: "p1", Player2ID: "p2", Outcome: domain.OutcomePlayer1Wins},
	}

	streakType, length := DeriveStreak(records, "p1")
	// In append order the last result is a win, but chronologically it is
	// the loss at minute 5.
	assert.Equal(t, domain.StreakWin, streakType)
	assert.Equal(t, 1, length)

	ordered := []domain.MatchRecord{records[1], records[0]}
	streakType, length = DeriveStreak(ordered, "p1")
	assert.Equal(t, domain.StreakLoss, streakType)
	assert.Equal(t, 1, length)
}

func TestSnapshotStaysFrozenAcrossMatches(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")
	s.AdvanceSnapshot()

	for i := 0; i < 10; i++ {
		_, err := s.RecordMatch("m", "p1", "p2", domain.OutcomePlayer1Wins, ts(i))
		require.NoError(t, err)
	}

	// Ten matches recorded, zero advances: delta unchanged.
	d, ok := s.SnapshotDelta("p1")
	require.True(t, ok)
	assert.Zero(t, d.Rating)
	assert.Zero(t, d.Rank)
}

func TestSnapshotDeltaAfterAdvance(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	// Initialize, advance with no changes: still zero.
	s.AdvanceSnapshot()
	d, ok := s.SnapshotDelta("p1")
	require.True(t, ok)
	assert.Zero(t, d.Rating)

	_, err := s.RecordMatch("m1", "p1", "p2", domain.OutcomePlayer1Wins, ts(0))
	require.NoError(t, err)
	s.AdvanceSnapshot()

	d, ok = s.SnapshotDelta("p1")
	require.True(t, ok)
	assert.Equal(t, 30, d.Rating)
	assert.Zero(t, d.Rank) // Alice was already first by insertion order

	d, ok = s.SnapshotDelta("p2")
	require.True(t, ok)
	assert.Equal(t, -30, d.Rating)
	assert.Zero(t, d.Rank) // was already second by insertion-order tie-break
}

func TestImportMatchesSkipsUnknownPlayers(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	records := []domain.MatchRecord{
		{
			ID: "m1", Timestamp: ts(0),
			Player1ID: "p1", Player2ID: "p2",
			Player1Name: "Alice", Player2Name: "Bob",
			Player1Before: 1200, Player2Before: 1200,
			Player1After: 1230, Player2After: 1170,
			Outcome: domain.OutcomePlayer1Wins,
		},
		{
			ID: "m2", Timestamp: ts(1),
			Player1ID: "ghost", Player2ID: "p2",
			Outcome: domain.OutcomePlayer1Wins,
		},
	}

	imported, skipped := s.ImportMatches(records)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	p1, _ := s.Player("p1")
	assert.Equal(t, 1230, p1.Rating) // rating re-derived from audit fields
	assert.Equal(t, 1, p1.Wins)
	assert.Equal(t, domain.StreakWin, p1.StreakType)
	assert.Equal(t, 1, p1.LastRank)
}

func TestImportMatchesSkipsInvalidOutcomes(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	records := []domain.MatchRecord{
		{
			ID: "m1", Timestamp: ts(0),
			Player1ID: "p1", Player2ID: "p2",
			Player1Name: "Alice", Player2Name: "Bob",
			Player1Before: 1200, Player2Before: 1200,
			Player1After: 1230, Player2After: 1170,
			Outcome: domain.OutcomePlayer1Wins,
		},
		{
			ID: "m2", Timestamp: ts(1),
			Player1ID: "p1", Player2ID: "p2",
			Player1Before: 1230, Player2Before: 1170,
			Player1After: 1210, Player2After: 1190,
			Outcome: domain.Outcome("banana"),
		},
	}

	imported, skipped := s.ImportMatches(records)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	// A record that moves no counter must not reach the ledger either, or
	// the counters stop matching the player's ledger entries.
	p1, _ := s.Player("p1")
	assert.Equal(t, 1, p1.MatchCount())
	assert.Len(t, s.PlayerHistory("p1"), p1.MatchCount())
	assert.Equal(t, 1230, p1.Rating)
}

func TestRestoreSkipsInvalidOutcomes(t *testing.T) {
	players := []domain.Player{{ID: "p1", Name: "Alice"}, {ID: "p2", Name: "Bob"}}
	matches := []domain.MatchRecord{
		{
			ID: "m1", Timestamp: ts(0),
			Player1ID: "p1", Player2ID: "p2",
			Player1Before: 1200, Player2Before: 1200,
			Player1After: 1230, Player2After: 1170,
			Outcome: domain.OutcomePlayer1Wins,
		},
		{
			ID: "m2", Timestamp: ts(1),
			Player1ID: "p1", Player2ID: "p2",
			Outcome: domain.Outcome("banana"),
		},
	}

	s, skipped := Restore(domain.Game{ID: "g1", KFactor: 60}, players, matches, zerolog.Nop())
	assert.Equal(t, 1, skipped)
	assert.Len(t, s.Ledger(), 1)

	p1, _ := s.Player("p1")
	assert.Equal(t, 1, p1.MatchCount())
	assert.Len(t, s.PlayerHistory("p1"), p1.MatchCount())
}

func TestImportDerivesMissingChangeFields(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	imported, _ := s.ImportMatches([]domain.MatchRecord{{
		ID: "m1", Timestamp: ts(0),
		Player1ID: "p1", Player2ID: "p2",
		Player1Before: 1200, Player2Before: 1200,
		Player1After: 1230, Player2After: 1170,
		Outcome: domain.OutcomePlayer1Wins,
	}})
	require.Equal(t, 1, imported)

	ledger := s.Ledger()
	require.Len(t, ledger, 1)
	assert.Equal(t, 30, ledger[0].Player1Change)
	assert.Equal(t, -30, ledger[0].Player2Change)
}

func TestRestoreRederivesState(t *testing.T) {
	players := []domain.Player{
		{ID: "p1", Name: "Alice", Rating: 999, StreakType: domain.StreakLoss, StreakLength: 7},
		{ID: "p2", Name: "Bob", Rating: 999},
	}
	matches := []domain.MatchRecord{
		{
			ID: "m1", Timestamp: ts(0),
			Player1ID: "p1", Player2ID: "p2",
			Player1Before: 1200, Player2Before: 1200,
			Player1After: 1230, Player2After: 1170,
			Outcome: domain.OutcomePlayer1Wins,
		},
		{
			ID: "m2", Timestamp: ts(1),
			Player1ID: "p1", Player2ID: "ghost",
			Outcome: domain.OutcomeDraw,
		},
	}

	s, skipped := Restore(domain.Game{ID: "g1", KFactor: 60}, players, matches, zerolog.Nop())
	assert.Equal(t, 1, skipped)

	// Stored streak and rating are ignored; the ledger is authoritative.
	p1, err := s.Player("p1")
	require.NoError(t, err)
	assert.Equal(t, 1230, p1.Rating)
	assert.Equal(t, 1, p1.Wins)
	assert.Equal(t, domain.StreakWin, p1.StreakType)
	assert.Equal(t, 1, p1.StreakLength)

	// Snapshot reset on load: no delta until an explicit advance.
	d, ok := s.SnapshotDelta("p1")
	require.True(t, ok)
	assert.Zero(t, d.Rating)
	assert.Zero(t, d.Rank)
}

func TestRosterSortedByRating(t *testing.T) {
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")
	addPlayer(t, s, "p3", "Carol")

	_, err := s.RecordMatch("m1", "p2", "p3", domain.OutcomePlayer1Wins, ts(0))
	require.NoError(t, err)

	roster := s.Roster()
	require.Len(t, roster, 3)
	assert.Equal(t, "Bob", roster[0].Name)
	assert.Equal(t, 1, roster[0].LastRank)
	assert.Equal(t, "Alice", roster[1].Name) // tie at 1200 broken by insertion order
	assert.Equal(t, 2, roster[1].LastRank)
	assert.Equal(t, "Carol", roster[2].Name)
	assert.Equal(t, 3, roster[2].LastRank)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	// Serving goroutines read the roster and ledger while others record
	// matches and grow the roster. Run under the race detector.
	s := newTestSession(t)
	addPlayer(t, s, "p1", "Alice")
	addPlayer(t, s, "p2", "Bob")

	const iterations = 200
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, err := s.RecordMatch(fmt.Sprintf("m%d", i), "p1", "p2", domain.OutcomePlayer1Wins, ts(i))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_, _ = s.AddPlayer(fmt.Sprintf("extra-%d", i), fmt.Sprintf("Guest %d", i), constants.InitialRating)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			for _, p := range s.Roster() {
				_, _ = s.SnapshotDelta(p.ID)
			}
			_ = s.Ledger()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			_ = s.PlayerHistory("p1")
			if i%10 == 0 {
				s.AdvanceSnapshot()
			}
		}
	}()

	wg.Wait()

	p1, err := s.Player("p1")
	require.NoError(t, err)
	assert.Equal(t, iterations, p1.Wins)
	assert.Len(t, s.Ledger(), iterations)
}
