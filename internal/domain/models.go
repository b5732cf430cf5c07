package domain

import (
	"time"
)

// Outcome of a duel from player 1's perspective.
type Outcome string

const (
	OutcomePlayer1Wins Outcome = "player1_wins"
	OutcomePlayer2Wins Outcome = "player2_wins"
	OutcomeDraw        Outcome = "draw"
)

// Valid reports whether o is one of the three known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePlayer1Wins, OutcomePlayer2Wins, OutcomeDraw:
		return true
	}
	return false
}

// StreakType marks whether a player's current run is wins or losses.
// Empty means no active streak (fresh player, or last result was a draw).
type StreakType string

const (
	StreakWin  StreakType = "W"
	StreakLoss StreakType = "L"
	StreakNone StreakType = ""
)

type Game struct {
	ID        string
	Name      string
	KFactor   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Player is the per-game roster entry. ID is stable and may be shared with
// the external identity registry so the same person can be linked across
// games; everything else is local to one game.
type Player struct {
	ID           string
	Name         string
	Rating       int
	Wins         int
	Losses       int
	Draws        int
	StreakType   StreakType
	StreakLength int
	LastRank     int // 0 = unranked
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MatchCount returns the number of ledger entries this player appears in.
func (p *Player) MatchCount() int {
	return p.Wins + p.Losses + p.Draws
}

// MatchRecord is one appended ledger entry. Names and ratings are copied at
// record time, never live references, so the ledger stays a faithful audit
// trail even after a player is renamed.
type MatchRecord struct {
	ID            string
	Seq           int64 // ledger insertion order, tie-breaker for equal timestamps
	Timestamp     time.Time
	Player1ID     string
	Player2ID     string
	Player1Name   string
	Player2Name   string
	Player1Before int
	Player2Before int
	Player1After  int
	Player2After  int
	Outcome       Outcome
	Player1Change int
	Player2Change int
	CreatedAt     time.Time
}

// AggregatedPlayer is the ephemeral cross-game view of one identity,
// recomputed from scratch for a time window. Rating here is replayed from
// the initial rating over the pooled matches, not summed from source games.
type AggregatedPlayer struct {
	Name              string // first-seen display spelling
	NormalizedName    string
	MatchCount        int
	Wins              int
	Losses            int
	Draws             int
	Rating            int
	GamesParticipated []string
	RatingHistory     []RatingPoint
}

// RatingPoint is one step of an aggregated player's rating trajectory.
type RatingPoint struct {
	Timestamp time.Time
	Rating    int
}

// SegmentKind classifies a selectable time window.
type SegmentKind string

const (
	SegmentAll   SegmentKind = "all"
	SegmentYear  SegmentKind = "year"
	SegmentMonth SegmentKind = "month"
)

// TimeSegment is a selectable aggregation window derived from the
// timestamps present in a match set.
type TimeSegment struct {
	ID    string
	Label string
	Start time.Time
	End   time.Time
	Kind  SegmentKind
}

// Contains reports whether ts falls inside the segment, bounds inclusive.
func (s TimeSegment) Contains(ts time.Time) bool {
	return !ts.Before(s.Start) && !ts.After(s.End)
}
