package session

import "duel-tracker/internal/domain"

// DeriveStreak replays the ledger for one player and returns their current
// consecutive win or loss run. records must already be in replay order.
// A draw ends any streak; a result of the opposite kind starts a new run
// at 1. Full replay instead of incremental bookkeeping keeps the value
// correct after bulk imports and wholesale state replacements.
func DeriveStreak(records []domain.MatchRecord, playerID string) (domain.StreakType, int) {
	streakType := domain.StreakNone
	length := 0

	for _, m := range records {
		var won, lost bool
		switch {
		case m.Player1ID == playerID:
			won = m.Outcome == domain.OutcomePlayer1Wins
			lost = m.Outcome == domain.OutcomePlayer2Wins
		case m.Player2ID == playerID:
			won = m.Outcome == domain.OutcomePlayer2Wins
			lost = m.Outcome == domain.OutcomePlayer1Wins
		default:
			continue
		}

		switch {
		case won:
			if streakType == domain.StreakWin {
				length++
			} else {
				streakType = domain.StreakWin
				length = 1
			}
		case lost:
			if streakType == domain.StreakLoss {
				length++
			} else {
				streakType = domain.StreakLoss
				length = 1
			}
		default: // draw
			streakType = domain.StreakNone
			length = 0
		}
	}

	return streakType, length
}
