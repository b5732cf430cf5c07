package session

// Snapshot keeps two generations of the leaderboard ("previous" and
// "last") so the displayed delta reflects "since I last checked", not
// "since the last match". It only moves on an explicit Advance; recording
// matches leaves it untouched. Every frozen view of the same game must
// read from the same Snapshot so they stay consistent when advanced.
type Snapshot struct {
	prevRating map[string]int
	lastRating map[string]int
	prevRank   map[string]int
	lastRank   map[string]int
}

// Delta is the frozen display difference for one player. Rank is positive
// when the player climbed, since a lower rank number is better.
type Delta struct {
	Rating int
	Rank   int
}

// NewSnapshot initializes both generations to the current state, so the
// first display shows no delta.
func NewSnapshot(ratings, ranks map[string]int) *Snapshot {
	return &Snapshot{
		prevRating: copyMap(ratings),
		lastRating: copyMap(ratings),
		prevRank:   copyMap(ranks),
		lastRank:   copyMap(ranks),
	}
}

// Advance shifts last into previous and captures the current state as last.
func (s *Snapshot) Advance(ratings, ranks map[string]int) {
	s.prevRating = s.lastRating
	s.prevRank = s.lastRank
	s.lastRating = copyMap(ratings)
	s.lastRank = copyMap(ranks)
}

// Delta returns the display delta for a player. Players absent from either
// generation (joined after the last advance) report a zero delta.
func (s *Snapshot) Delta(playerID string) (Delta, bool) {
	last, inLast := s.lastRating[playerID]
	if !inLast {
		return Delta{}, false
	}
	prev, inPrev := s.prevRating[playerID]
	if !inPrev {
		return Delta{}, true
	}
	return Delta{
		Rating: last - prev,
		Rank:   s.prevRank[playerID] - s.lastRank[playerID],
	}, true
}

func copyMap(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
