// Package rating implements the Elo update used for duel results.
//
// The math follows the standard formulation: ratings are compared on a
// logistic curve of width ScalingFactor to get an expected score in [0,1],
// and the difference between actual and expected score, scaled by the
// K-factor, moves each rating. See
// https://en.wikipedia.org/wiki/Elo_rating_system#Mathematical_details.
package rating

import (
	"math"

	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"
)

// Result carries both updated ratings and the audit deltas for one match.
type Result struct {
	Player1After  int
	Player2After  int
	Player1Change int
	Player2Change int
}

// ExpectedScore returns the probability-like expected score of a player
// rated ratingA against an opponent rated ratingB.
// ExpectedScore(a, b) + ExpectedScore(b, a) == 1 for all inputs.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1 / (1 + math.Pow(10, float64(ratingB-ratingA)/constants.ScalingFactor))
}

// Calculate computes both players' new ratings for an outcome with the given
// K-factor. Pure; never fails for finite inputs.
//
// Deltas are rounded half away from zero (math.Round). Actual and expected
// scores are complements, so the two raw deltas are exact negations and the
// rounded changes always sum to zero under this rounding. A half-up rounding
// rule would break that symmetry at .5 boundaries; don't swap it in.
func Calculate(rating1, rating2 int, outcome domain.Outcome, kFactor int) Result {
	expected1 := ExpectedScore(rating1, rating2)
	expected2 := 1 - expected1

	var actual1, actual2 float64
	switch outcome {
	case domain.OutcomePlayer1Wins:
		actual1, actual2 = 1, 0
	case domain.OutcomePlayer2Wins:
		actual1, actual2 = 0, 1
	case domain.OutcomeDraw:
		actual1, actual2 = 0.5, 0.5
	}

	change1 := int(math.Round(float64(kFactor) * (actual1 - expected1)))
	change2 := int(math.Round(float64(kFactor) * (actual2 - expected2)))

	return Result{
		Player1After:  rating1 + change1,
		Player2After:  rating2 + change2,
		Player1Change: change1,
		Player2Change: change2,
	}
}
