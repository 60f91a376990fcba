// internal/httpserver/routes_leaderboard.go
//
// HTTP routes for the shared local medium:
//   - GET    /leaderboard → most-recent-first round outcomes (max 50)
//   - DELETE /leaderboard → erase all outcomes
//   - GET    /theme       → {"theme":"light"|"dark"}
//   - PUT    /theme       → persist the theme preference
//
// None of these need a session: the board and the theme belong to the
// installation, not to a player.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessnumber/internal/leaderboard"
	"github.com/robalobadob/guessnumber/internal/prefs"
)

// mountLeaderboard registers /leaderboard and /theme routes.
func (s *Server) mountLeaderboard(r chi.Router) {
	r.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", s.handleLeaderboard)
		r.Delete("/", s.handleClearLeaderboard)
	})
	r.Route("/theme", func(r chi.Router) {
		r.Get("/", s.handleGetTheme)
		r.Put("/", s.handleSetTheme)
	})
}

// lbRes is returned by GET /leaderboard.
type lbRes struct {
	Entries []leaderboard.Entry `json:"entries"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(lbRes{Entries: s.board.List(r.Context())})
}

func (s *Server) handleClearLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := s.board.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Msg("leaderboard cleared")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// themeBody is both the request and response payload for /theme.
type themeBody struct {
	Theme string `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.prefs.Theme(r.Context())
	if err != nil {
		// Unreadable preference falls back to dark.
		log.Warn().Err(err).Msg("read theme")
	}
	_ = json.NewEncoder(w).Encode(themeBody{Theme: string(t)})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var body themeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_json")
		return
	}
	t, err := prefs.ParseTheme(body.Theme)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_theme")
		return
	}
	if err := s.prefs.SetTheme(r.Context(), t); err != nil {
		log.Warn().Err(err).Msg("save theme")
		writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable")
		return
	}
	_ = json.NewEncoder(w).Encode(themeBody{Theme: string(t)})
}
