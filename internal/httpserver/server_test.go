package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robalobadob/guessnumber/internal/config"
	"github.com/robalobadob/guessnumber/internal/game"
	"github.com/robalobadob/guessnumber/internal/leaderboard"
	"github.com/robalobadob/guessnumber/internal/prefs"
	"github.com/robalobadob/guessnumber/internal/session"
	"github.com/robalobadob/guessnumber/internal/store"
)

type fixedStarter struct{ secret int }

func (f fixedStarter) StartRound(player string) (*game.Round, error) {
	return game.NewRound(player, f.secret)
}

// readOnlyKV rejects writes, simulating a full or locked medium.
type readOnlyKV struct{ store.Store }

func (readOnlyKV) Set(context.Context, string, string) error { return errors.New("read-only") }
func (readOnlyKV) Delete(context.Context, string) error      { return errors.New("read-only") }

func testConfig() config.Config {
	return config.Config{
		JWTSecret:    "test-secret",
		CookieName:   "gtn_session",
		ClientOrigin: "http://localhost:5173",
		RoundDelay:   1800 * time.Millisecond,
	}
}

func newTestServer(t *testing.T, kv store.Store) *Server {
	t.Helper()
	board := leaderboard.New(kv)
	reg := session.NewRegistry(fixedStarter{secret: 42}, board)
	return New(testConfig(), reg, board, prefs.New(kv))
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func startSession(t *testing.T, s *Server, name string) startRes {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/session", `{"name":"`+name+`"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: status %d body %s", rec.Code, rec.Body.String())
	}
	return decode[startRes](t, rec)
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, store.NewMemoryStore()), http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestStartSessionSetsCookie(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())
	rec := do(t, s, http.MethodPost, "/session", `{"name":"  Ada "}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "gtn_session" && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session cookie")
	}
	res := decode[startRes](t, rec)
	if res.Player != "Ada" || res.AttemptsRemaining != game.MaxAttempts || res.Status != game.StatusPlaying {
		t.Fatalf("unexpected snapshot %+v", res.Snapshot)
	}
}

func TestStartSessionBlankName(t *testing.T) {
	rec := do(t, newTestServer(t, store.NewMemoryStore()), http.MethodPost, "/session", `{"name":"   "}`, "")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid_input") {
		t.Fatalf("expected invalid_input, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())
	if rec := do(t, s, http.MethodPost, "/session/guess", `{"guess":"5"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/session/guess", `{"guess":"5"}`, "garbage"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}

	// Valid signature, unknown session.
	tok, _, err := s.signJWT("no-such-session", "Ada")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := do(t, s, http.MethodGet, "/session", "", tok)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "session_expired") {
		t.Fatalf("expected session_expired, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestEndSessionForgetsIt(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())
	res := startSession(t, s, "Ada")

	rec := do(t, s, http.MethodDelete, "/session", "", res.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("end session: status %d body %s", rec.Code, rec.Body.String())
	}
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "gtn_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("expected session cookie to be cleared")
	}
	if n := s.sessions.Len(); n != 0 {
		t.Fatalf("expected registry empty, len=%d", n)
	}

	rec = do(t, s, http.MethodGet, "/session", "", res.Token)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "session_expired") {
		t.Fatalf("expected session_expired after end, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGuessFlowToWin(t *testing.T) {
	kv := store.NewMemoryStore()
	s := newTestServer(t, kv)
	tok := startSession(t, s, "Ada").Token

	steps := []struct {
		guess    string
		outcome  game.Outcome
		attempts int
	}{
		{"10", game.OutcomeTooLow, 9},
		{"90", game.OutcomeTooHigh, 8},
		{"42", game.OutcomeCorrect, 7},
	}
	var last guessRes
	for _, st := range steps {
		rec := do(t, s, http.MethodPost, "/session/guess", `{"guess":"`+st.guess+`"}`, tok)
		if rec.Code != http.StatusOK {
			t.Fatalf("guess %s: status %d %s", st.guess, rec.Code, rec.Body.String())
		}
		last = decode[guessRes](t, rec)
		if last.Outcome != st.outcome || last.AttemptsRemaining != st.attempts {
			t.Fatalf("guess %s: unexpected %+v", st.guess, last)
		}
	}
	if last.Status != game.StatusWon || last.Secret != 42 || last.NextRoundInMs != 1800 || !last.Persisted {
		t.Fatalf("unexpected terminal response %+v", last)
	}

	rec := do(t, s, http.MethodPost, "/session/guess", `{"guess":"42"}`, tok)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 after finish, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/leaderboard", "", "")
	board := decode[struct {
		Entries []map[string]any `json:"entries"`
	}](t, rec)
	if len(board.Entries) != 1 || board.Entries[0]["name"] != "Ada" || board.Entries[0]["result"] != "Success" {
		t.Fatalf("unexpected leaderboard %+v", board.Entries)
	}

	rec = do(t, s, http.MethodPost, "/session/round", "", tok)
	snap := decode[session.Snapshot](t, rec)
	if snap.Status != game.StatusPlaying || snap.AttemptsRemaining != game.MaxAttempts || snap.Stats.Successes != 1 {
		t.Fatalf("unexpected snapshot after next round %+v", snap)
	}

	rec = do(t, s, http.MethodPost, "/session/stats/reset", "", tok)
	if stats := decode[session.Stats](t, rec); stats != (session.Stats{}) {
		t.Fatalf("expected reset stats, got %+v", stats)
	}
}

func TestGuessInputErrors(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())
	tok := startSession(t, s, "Ada").Token
	tests := []struct {
		body string
		code string
	}{
		{`{"guess":"abc"}`, "parse_error"},
		{`{"guess":"150"}`, "range_error"},
		{`not json`, "bad_json"},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodPost, "/session/guess", tt.body, tok)
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), tt.code) {
			t.Fatalf("body %s: expected 400 %s, got %d %s", tt.body, tt.code, rec.Code, rec.Body.String())
		}
	}
	rec := do(t, s, http.MethodGet, "/session", "", tok)
	if snap := decode[session.Snapshot](t, rec); snap.AttemptsRemaining != game.MaxAttempts {
		t.Fatalf("input errors consumed attempts: %d", snap.AttemptsRemaining)
	}
}

func TestStorageUnavailableStillFinishesRound(t *testing.T) {
	s := newTestServer(t, readOnlyKV{Store: store.NewMemoryStore()})
	tok := startSession(t, s, "Ada").Token

	rec := do(t, s, http.MethodPost, "/session/guess", `{"guess":"42"}`, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d %s", rec.Code, rec.Body.String())
	}
	res := decode[guessRes](t, rec)
	if res.Status != game.StatusWon || res.Persisted {
		t.Fatalf("expected unpersisted win, got %+v", res)
	}

	rec = do(t, s, http.MethodDelete, "/leaderboard", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on clear, got %d", rec.Code)
	}
}

func TestClearLeaderboard(t *testing.T) {
	kv := store.NewMemoryStore()
	s := newTestServer(t, kv)
	_ = leaderboard.New(kv).Record(context.Background(), "Bob", leaderboard.Fail)

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodDelete, "/leaderboard", "", ""); rec.Code != http.StatusOK {
			t.Fatalf("clear %d: status %d", i, rec.Code)
		}
	}
	rec := do(t, s, http.MethodGet, "/leaderboard", "", "")
	if !strings.Contains(rec.Body.String(), `"entries":[]`) {
		t.Fatalf("expected empty entries, got %s", rec.Body.String())
	}
}

func TestTheme(t *testing.T) {
	s := newTestServer(t, store.NewMemoryStore())
	if rec := do(t, s, http.MethodGet, "/theme", "", ""); !strings.Contains(rec.Body.String(), `"dark"`) {
		t.Fatalf("expected dark default, got %s", rec.Body.String())
	}
	if rec := do(t, s, http.MethodPut, "/theme", `{"theme":"light"}`, ""); rec.Code != http.StatusOK {
		t.Fatalf("set theme: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/theme", "", ""); !strings.Contains(rec.Body.String(), `"light"`) {
		t.Fatalf("expected light, got %s", rec.Body.String())
	}
	if rec := do(t, s, http.MethodPut, "/theme", `{"theme":"neon"}`, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown theme, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := do(t, newTestServer(t, store.NewMemoryStore()), http.MethodOptions, "/session/guess", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected origin %q", got)
	}
}
