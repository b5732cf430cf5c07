package server

import (
	"time"

	"duel-tracker/internal/domain"
)

type gameDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	KFactor int    `json:"k_factor"`
}

type playerDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Rating       int     `json:"rating"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Draws        int     `json:"draws"`
	StreakType   string  `json:"streak_type,omitempty"`
	StreakLength int     `json:"streak_length"`
	Rank         int     `json:"rank"`
	WinRate      float64 `json:"win_rate"`
}

type leaderboardEntryDTO struct {
	playerDTO
	RatingDelta int `json:"rating_delta"`
	RankDelta   int `json:"rank_delta"`
}

type matchDTO struct {
	ID            string `json:"id"`
	Timestamp     int64  `json:"timestamp"` // epoch ms
	Player1ID     string `json:"player1_id"`
	Player2ID     string `json:"player2_id"`
	Player1Name   string `json:"player1_name"`
	Player2Name   string `json:"player2_name"`
	Player1Before int    `json:"player1_rating_before"`
	Player2Before int    `json:"player2_rating_before"`
	Player1After  int    `json:"player1_rating_after"`
	Player2After  int    `json:"player2_rating_after"`
	Outcome       string `json:"outcome"`
	Player1Change int    `json:"player1_rating_change"`
	Player2Change int    `json:"player2_rating_change"`
}

type pooledMatchDTO struct {
	GameName string `json:"game_name"`
	matchDTO
}

type segmentDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Start int64  `json:"start"` // epoch ms
	End   int64  `json:"end"`
	Kind  string `json:"kind"`
}

type ratingPointDTO struct {
	Timestamp int64 `json:"timestamp"`
	Rating    int   `json:"rating"`
}

type aggregatedPlayerDTO struct {
	Name              string           `json:"name"`
	NormalizedName    string           `json:"normalized_name"`
	MatchCount        int              `json:"match_count"`
	Wins              int              `json:"wins"`
	Losses            int              `json:"losses"`
	Draws             int              `json:"draws"`
	Rating            int              `json:"rating"`
	GamesParticipated []string         `json:"games_participated"`
	RatingHistory     []ratingPointDTO `json:"rating_history"`
}

type aggregateResponseDTO struct {
	Segment segmentDTO            `json:"segment"`
	Players []aggregatedPlayerDTO `json:"players"`
	Matches []pooledMatchDTO      `json:"matches"`
	Skipped int                   `json:"skipped"`
}

func toGameDTO(g domain.Game) gameDTO {
	return gameDTO{ID: g.ID, Name: g.Name, KFactor: g.KFactor}
}

func toPlayerDTO(p domain.Player) playerDTO {
	return playerDTO{
		ID:           p.ID,
		Name:         p.Name,
		Rating:       p.Rating,
		Wins:         p.Wins,
		Losses:       p.Losses,
		Draws:        p.Draws,
		StreakType:   string(p.StreakType),
		StreakLength: p.StreakLength,
		Rank:         p.LastRank,
		WinRate:      winRate(p),
	}
}

func winRate(p domain.Player) float64 {
	total := p.MatchCount()
	if total == 0 {
		return 0
	}
	return float64(p.Wins) / float64(total)
}

func toMatchDTO(m domain.MatchRecord) matchDTO {
	return matchDTO{
		ID:            m.ID,
		Timestamp:     m.Timestamp.UnixMilli(),
		Player1ID:     m.Player1ID,
		Player2ID:     m.Player2ID,
		Player1Name:   m.Player1Name,
		Player2Name:   m.Player2Name,
		Player1Before: m.Player1Before,
		Player2Before: m.Player2Before,
		Player1After:  m.Player1After,
		Player2After:  m.Player2After,
		Outcome:       string(m.Outcome),
		Player1Change: m.Player1Change,
		Player2Change: m.Player2Change,
	}
}

func fromMatchDTO(m matchDTO) domain.MatchRecord {
	return domain.MatchRecord{
		ID:            m.ID,
		Timestamp:     time.UnixMilli(m.Timestamp),
		Player1ID:     m.Player1ID,
		Player2ID:     m.Player2ID,
		Player1Name:   m.Player1Name,
		Player2Name:   m.Player2Name,
		Player1Before: m.Player1Before,
		Player2Before: m.Player2Before,
		Player1After:  m.Player1After,
		Player2After:  m.Player2After,
		Outcome:       domain.Outcome(m.Outcome),
		Player1Change: m.Player1Change,
		Player2Change: m.Player2Change,
		CreatedAt:     time.Now(),
	}
}

func toSegmentDTO(s domain.TimeSegment) segmentDTO {
	return segmentDTO{
		ID:    s.ID,
		Label: s.Label,
		Start: s.Start.UnixMilli(),
		End:   s.End.UnixMilli(),
		Kind:  string(s.Kind),
	}
}

func toAggregatedPlayerDTO(p domain.AggregatedPlayer) aggregatedPlayerDTO {
	history := make([]ratingPointDTO, 0, len(p.RatingHistory))
	for _, pt := range p.RatingHistory {
		history = append(history, ratingPointDTO{Timestamp: pt.Timestamp.UnixMilli(), Rating: pt.Rating})
	}
	return aggregatedPlayerDTO{
		Name:              p.Name,
		NormalizedName:    p.NormalizedName,
		MatchCount:        p.MatchCount,
		Wins:              p.Wins,
		Losses:            p.Losses,
		Draws:             p.Draws,
		Rating:            p.Rating,
		GamesParticipated: p.GamesParticipated,
		RatingHistory:     history,
	}
}
