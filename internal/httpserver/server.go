// internal/httpserver/server.go
//
// HTTP server wiring for the Guess The Number backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Session endpoints: POST /session, then (token required) GET /session,
//     POST /session/guess, POST /session/round, POST /session/stats/reset,
//     DELETE /session.
//   - Leaderboard + theme endpoints: mounted from routes_leaderboard.go.
//   - JWT session token carried by cookie or Authorization header.
//
// Notes:
//   - CORS is origin‑aware and credentials‑enabled (so cookies work).
//   - Sessions live in memory; a token for a session the process no longer
//     knows is rejected like an invalid one.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessnumber/internal/config"
	"github.com/robalobadob/guessnumber/internal/game"
	"github.com/robalobadob/guessnumber/internal/leaderboard"
	"github.com/robalobadob/guessnumber/internal/prefs"
	"github.com/robalobadob/guessnumber/internal/session"
)

// Server bundles router, session registry and persisted stores.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	sessions *session.Registry
	board    *leaderboard.Store
	prefs    *prefs.Store
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, sessions *session.Registry, board *leaderboard.Store, pf *prefs.Store) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, sessions: sessions, board: board, prefs: pf}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"guessnumber-go","endpoints":["/health","POST /session","POST /session/guess","/leaderboard","/theme"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Session endpoints
	s.r.Route("/session", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession())
			r.Get("/", s.handleSnapshot)
			r.Delete("/", s.handleEnd)
			r.Post("/guess", s.handleGuess)
			r.Post("/round", s.handleNextRound)
			r.Post("/stats/reset", s.handleResetStats)
		})
	})

	// Leaderboard + theme (no session needed; shared local medium)
	s.mountLeaderboard(s.r)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ SESSION ------------------------------------

// startReq/Res payloads for POST /session.
type startReq struct {
	Name string `json:"name"`
}
type startRes struct {
	session.Snapshot
	Token string `json:"token"`
}

// handleStart creates a session (first round included) and issues its token.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess, err := s.sessions.Create(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	tok, exp, err := s.signJWT(sess.ID, sess.Player)
	if err != nil {
		log.Error().Err(err).Msg("sign session token")
		writeJSONError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setSessionCookie(w, tok, exp)
	log.Info().Str("session", sess.ID).Str("player", sess.Player).Msg("session started")

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(startRes{Snapshot: sess.Snapshot(), Token: tok})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(currentSession(r).Snapshot())
}

// guessReq/Res payloads for POST /session/guess.
type guessReq struct {
	Guess string `json:"guess"`
}
type guessRes struct {
	session.Feedback
	NextRoundInMs int64 `json:"nextRoundInMs,omitempty"` // set once the round ends
}

// handleGuess applies a guess to the caller's live round. A finished round
// tells the client how long to wait before POST /session/round.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_json")
		return
	}
	fb, err := currentSession(r).Guess(r.Context(), req.Guess)
	if err != nil {
		writeError(w, err)
		return
	}
	res := guessRes{Feedback: fb}
	if fb.Terminal() {
		res.NextRoundInMs = s.cfg.RoundDelay.Milliseconds()
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleNextRound replaces the live round for the same player.
func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if _, err := sess.NextRound(); err != nil {
		writeError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleEnd forgets the caller's session and clears its cookie.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	s.sessions.Delete(sess.ID)
	s.clearSessionCookie(w)
	log.Info().Str("session", sess.ID).Str("player", sess.Player).Msg("session ended")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	sess.ResetStats()
	_ = json.NewEncoder(w).Encode(sess.Stats())
}

// ------------------------------- errors ------------------------------------

// writeError maps domain errors onto HTTP statuses and stable codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, "invalid_input")
	case errors.Is(err, game.ErrParse):
		writeJSONError(w, http.StatusBadRequest, "parse_error")
	case errors.Is(err, game.ErrRange):
		writeJSONError(w, http.StatusBadRequest, "range_error")
	case errors.Is(err, game.ErrIllegalState):
		writeJSONError(w, http.StatusConflict, "illegal_state")
	case errors.Is(err, leaderboard.ErrStorageUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable")
	case errors.Is(err, session.ErrNotFound):
		writeJSONError(w, http.StatusUnauthorized, "session_expired")
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeJSONError(w, http.StatusInternalServerError, "internal")
	}
}

func writeJSONError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT naming the session and its player.
func (s *Server) signJWT(sid, player string) (string, time.Time, error) {
	exp := time.Now().Add(s.sessions.TTL())
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":  sid,
		"name": player,
		"exp":  exp.Unix(),
		"iat":  time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// setSessionCookie writes the session token cookie with appropriate security attributes.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := s.cfg.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third‑party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearSessionCookie expires the session cookie on the client.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or session cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// -------------------------- session middleware -----------------------------

// ctxSessionKey is the context key type for storing *session.Session.
type ctxSessionKey struct{}

// requireSession enforces a valid token for a live session and injects it
// into the request context.
func (s *Server) requireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := s.bearerOrCookie(r)
			if tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(s.cfg.JWTSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			sid, _ := claims["sid"].(string)
			if sid == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			sess, err := s.sessions.Get(sid)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentSession returns the session placed by requireSession.
func currentSession(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(ctxSessionKey{}).(*session.Session)
	return sess
}
