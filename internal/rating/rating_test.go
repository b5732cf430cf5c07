package rating

import (
	"testing"

	"duel-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCalculateEqualRatings(t *testing.T) {
	res := Calculate(1200, 1200, domain.OutcomePlayer1Wins, 60)

	assert.Equal(t, 30, res.Player1Change)
	assert.Equal(t, -30, res.Player2Change)
	assert.Equal(t, 1230, res.Player1After)
	assert.Equal(t, 1170, res.Player2After)
}

func TestCalculateDrawBetweenEquals(t *testing.T) {
	res := Calculate(1200, 1200, domain.OutcomeDraw, 60)

	assert.Equal(t, 0, res.Player1Change)
	assert.Equal(t, 0, res.Player2Change)
	assert.Equal(t, 1200, res.Player1After)
	assert.Equal(t, 1200, res.Player2After)
}

func TestCalculateSymmetricRoundTrip(t *testing.T) {
	// P1 beats P2, then P2 beats P1: equal starting ratings come back exact.
	first := Calculate(1200, 1200, domain.OutcomePlayer1Wins, 60)
	second := Calculate(first.Player1After, first.Player2After, domain.OutcomePlayer2Wins, 60)

	assert.Equal(t, 1200, second.Player1After)
	assert.Equal(t, 1200, second.Player2After)
}

func TestCalculateZeroSum(t *testing.T) {
	cases := []struct {
		name    string
		r1, r2  int
		outcome domain.Outcome
		kFactor int
	}{
		{"equal win", 1200, 1200, domain.OutcomePlayer1Wins, 60},
		{"equal draw", 1200, 1200, domain.OutcomeDraw, 60},
		{"underdog wins", 1000, 1600, domain.OutcomePlayer1Wins, 40},
		{"favourite wins", 1600, 1000, domain.OutcomePlayer1Wins, 40},
		{"uneven draw", 1350, 1125, domain.OutcomeDraw, 20},
		{"large gap upset", 800, 2200, domain.OutcomePlayer1Wins, 60},
		{"p2 wins uneven", 1475, 1210, domain.OutcomePlayer2Wins, 32},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Calculate(tc.r1, tc.r2, tc.outcome, tc.kFactor)
			assert.Zero(t, res.Player1Change+res.Player2Change)
			assert.Equal(t, res.Player1After-tc.r1, res.Player1Change)
			assert.Equal(t, res.Player2After-tc.r2, res.Player2Change)
		})
	}
}

func TestExpectedScoreSymmetry(t *testing.T) {
	pairs := [][2]int{{1200, 1200}, {1000, 1600}, {2400, 800}, {1337, 1336}, {0, 400}}

	for _, p := range pairs {
		sum := ExpectedScore(p[0], p[1]) + ExpectedScore(p[1], p[0])
		assert.InDelta(t, 1.0, sum, 1e-12)
	}
}

func TestExpectedScoreSpread(t *testing.T) {
	// 400 points of spread means 10-to-1 odds.
	assert.InDelta(t, 10.0/11.0, ExpectedScore(1600, 1200), 1e-12)
	assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-12)
}
