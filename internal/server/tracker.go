package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"duel-tracker/internal/domain"
	"duel-tracker/internal/service"

	"github.com/rs/zerolog"
)

// TrackerServer exposes the game sessions and the aggregation engine as a
// JSON API. Every response is built from copies of the core state; nothing
// a client receives aliases live roster or ledger data.
type TrackerServer struct {
	gameSvc *service.GameService
	aggSvc  *service.AggregateService
	logger  zerolog.Logger
}

func NewTrackerServer(gameSvc *service.GameService, aggSvc *service.AggregateService, logger zerolog.Logger) *TrackerServer {
	return &TrackerServer{gameSvc: gameSvc, aggSvc: aggSvc, logger: logger}
}

// Routes registers all handlers on mux.
func (s *TrackerServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/games", s.createGame)
	mux.HandleFunc("GET /api/games", s.listGames)
	mux.HandleFunc("DELETE /api/games/{id}", s.clearGame)
	mux.HandleFunc("PUT /api/games/{id}/k-factor", s.setKFactor)
	mux.HandleFunc("POST /api/games/{id}/players", s.addPlayer)
	mux.HandleFunc("GET /api/games/{id}/roster", s.roster)
	mux.HandleFunc("POST /api/games/{id}/matches", s.recordMatch)
	mux.HandleFunc("GET /api/games/{id}/matches", s.ledger)
	mux.HandleFunc("POST /api/games/{id}/import", s.importMatches)
	mux.HandleFunc("GET /api/games/{id}/players/{playerID}/history", s.playerHistory)
	mux.HandleFunc("GET /api/games/{id}/leaderboard", s.leaderboard)
	mux.HandleFunc("POST /api/games/{id}/snapshot/advance", s.advanceSnapshot)
	mux.HandleFunc("GET /api/segments", s.segments)
	mux.HandleFunc("GET /api/aggregate", s.aggregate)
}

func (s *TrackerServer) createGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		KFactor int    `json:"k_factor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	game, err := s.gameSvc.CreateGame(r.Context(), req.Name, req.KFactor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGameDTO(game))
}

func (s *TrackerServer) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.gameSvc.ListGames(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]gameDTO, 0, len(games))
	for _, g := range games {
		out = append(out, toGameDTO(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *TrackerServer) clearGame(w http.ResponseWriter, r *http.Request) {
	if err := s.gameSvc.ClearGame(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TrackerServer) setKFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		KFactor int `json:"k_factor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.KFactor <= 0 {
		writeError(w, http.StatusBadRequest, "k_factor must be a positive integer")
		return
	}

	if err := s.gameSvc.SetKFactor(r.Context(), r.PathValue("id"), req.KFactor); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *TrackerServer) addPlayer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	player, err := s.gameSvc.AddPlayer(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlayerDTO(player))
}

func (s *TrackerServer) roster(w http.ResponseWriter, r *http.Request) {
	sess, err := s.gameSvc.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	roster := sess.Roster()
	out := make([]playerDTO, 0, len(roster))
	for _, p := range roster {
		out = append(out, toPlayerDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *TrackerServer) recordMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Player1ID string `json:"player1_id"`
		Player2ID string `json:"player2_id"`
		Outcome   string `json:"outcome"`
		Timestamp int64  `json:"timestamp,omitempty"` // epoch ms, optional
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var ts time.Time
	if req.Timestamp != 0 {
		ts = time.UnixMilli(req.Timestamp)
	}

	record, err := s.gameSvc.RecordMatch(r.Context(), r.PathValue("id"), req.Player1ID, req.Player2ID, domain.Outcome(req.Outcome), ts)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMatchDTO(record))
}

func (s *TrackerServer) ledger(w http.ResponseWriter, r *http.Request) {
	sess, err := s.gameSvc.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	records := sess.Ledger()
	out := make([]matchDTO, 0, len(records))
	for _, m := range records {
		out = append(out, toMatchDTO(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *TrackerServer) importMatches(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Matches []matchDTO `json:"matches"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records := make([]domain.MatchRecord, 0, len(req.Matches))
	for _, m := range req.Matches {
		records = append(records, fromMatchDTO(m))
	}

	imported, skipped, err := s.gameSvc.ImportMatches(r.Context(), r.PathValue("id"), records)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": imported, "skipped": skipped})
}

func (s *TrackerServer) playerHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.gameSvc.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if _, err := sess.Player(r.PathValue("playerID")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	records := sess.PlayerHistory(r.PathValue("playerID"))
	out := make([]matchDTO, 0, len(records))
	for _, m := range records {
		out = append(out, toMatchDTO(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// leaderboard returns the roster with each player's frozen snapshot delta
// attached. The delta only moves when the snapshot is advanced, never on
// match recording, so every consumer of this endpoint sees the same
// "since last review" view.
func (s *TrackerServer) leaderboard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.gameSvc.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	roster := sess.Roster()
	out := make([]leaderboardEntryDTO, 0, len(roster))
	for _, p := range roster {
		entry := leaderboardEntryDTO{playerDTO: toPlayerDTO(p)}
		if d, ok := sess.SnapshotDelta(p.ID); ok {
			entry.RatingDelta = d.Rating
			entry.RankDelta = d.Rank
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *TrackerServer) advanceSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.gameSvc.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sess.AdvanceSnapshot()
	w.WriteHeader(http.StatusNoContent)
}

func (s *TrackerServer) segments(w http.ResponseWriter, r *http.Request) {
	segments, err := s.aggSvc.Segments(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]segmentDTO, 0, len(segments))
	for _, seg := range segments {
		out = append(out, toSegmentDTO(seg))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *TrackerServer) aggregate(w http.ResponseWriter, r *http.Request) {
	res, window, err := s.aggSvc.Aggregate(r.Context(), r.URL.Query().Get("segment"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	players := make([]aggregatedPlayerDTO, 0, len(res.Players))
	for _, p := range res.Players {
		players = append(players, toAggregatedPlayerDTO(p))
	}
	matches := make([]pooledMatchDTO, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, pooledMatchDTO{GameName: m.GameName, matchDTO: toMatchDTO(m.MatchRecord)})
	}

	writeJSON(w, http.StatusOK, aggregateResponseDTO{
		Segment: toSegmentDTO(window),
		Players: players,
		Matches: matches,
		Skipped: res.Skipped,
	})
}

func (s *TrackerServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrGameNotFound), errors.Is(err, domain.ErrUnknownPlayer):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateName), errors.Is(err, domain.ErrKFactorLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSamePlayer), errors.Is(err, domain.ErrInvalidOutcome):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
