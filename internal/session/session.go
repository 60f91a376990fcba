// internal/session/session.go
//
// A Session is the explicit owner of everything the browser client plays
// against: the player name, the single live round, and the running
// success/fail tallies. Nothing here is process-global; callers construct
// sessions and hold them (see Registry).
//
// Round lifecycle:
//   - New starts the first round.
//   - Guess forwards to the live round; a terminal result bumps Stats and
//     records the outcome on the leaderboard.
//   - NextRound replaces the live round (after a finish, or to abandon one).

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessnumber/internal/game"
	"github.com/robalobadob/guessnumber/internal/leaderboard"
)

// Starter begins rounds. *game.Engine satisfies it.
type Starter interface {
	StartRound(player string) (*game.Round, error)
}

// Recorder persists finished rounds. *leaderboard.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, player string, outcome leaderboard.Outcome) error
}

// Stats are the session's running tallies.
type Stats struct {
	Successes int `json:"success"`
	Failures  int `json:"fail"`
}

// Feedback is the session's answer to one accepted guess.
type Feedback struct {
	game.GuessResult
	Secret    int   `json:"secret,omitempty"` // revealed only once the round ends
	Stats     Stats `json:"stats"`
	Persisted bool  `json:"persisted"` // leaderboard write succeeded (terminal only)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID                string       `json:"sessionId"`
	Player            string       `json:"player"`
	RoundID           string       `json:"roundId"`
	AttemptsRemaining int          `json:"attemptsRemaining"`
	History           []game.Guess `json:"history"`
	Status            game.Status  `json:"status"`
	Stats             Stats        `json:"stats"`
}

type Session struct {
	ID     string
	Player string

	mu     sync.Mutex // guards round and stats
	engine Starter
	board  Recorder
	round  *game.Round
	stats  Stats
}

// New creates a session for player and starts its first round.
// Returns game.ErrInvalidInput for a blank name.
func New(engine Starter, board Recorder, player string) (*Session, error) {
	r, err := engine.StartRound(player)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:     uuid.NewString(),
		Player: r.Player,
		engine: engine,
		board:  board,
		round:  r,
	}, nil
}

// Guess applies raw input to the live round.
// Input errors and game.ErrIllegalState are returned untouched; a leaderboard
// failure is logged and reported through Feedback.Persisted.
func (s *Session) Guess(ctx context.Context, raw string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.round.SubmitGuess(raw)
	if err != nil {
		return Feedback{}, err
	}
	fb := Feedback{GuessResult: res}
	if !res.Terminal() {
		fb.Stats = s.stats
		return fb, nil
	}

	result, err := s.round.Result()
	if err != nil {
		return Feedback{}, err
	}
	outcome := leaderboard.Fail
	if result.Won {
		s.stats.Successes++
		outcome = leaderboard.Success
	} else {
		s.stats.Failures++
	}
	fb.Secret = result.Secret
	fb.Stats = s.stats

	if err := s.board.Record(ctx, s.Player, outcome); err != nil {
		ev := log.Error()
		if errors.Is(err, leaderboard.ErrStorageUnavailable) {
			ev = log.Warn()
		}
		ev.Err(err).Str("session", s.ID).Str("player", s.Player).Msg("record round")
	} else {
		fb.Persisted = true
	}
	log.Debug().
		Str("session", s.ID).
		Str("round", s.round.ID).
		Str("status", string(res.Status)).
		Int("attempts", result.Attempts).
		Msg("round finished")
	return fb, nil
}

// NextRound starts a fresh round for the same player. An unfinished round
// is discarded without touching Stats or the leaderboard.
func (s *Session) NextRound() (*game.Round, error) {
	r, err := s.engine.StartRound(s.Player)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.round = r
	s.mu.Unlock()
	return r, nil
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ResetStats zeroes the tallies. The leaderboard is left alone.
func (s *Session) ResetStats() {
	s.mu.Lock()
	s.stats = Stats{}
	s.mu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := make([]game.Guess, len(s.round.History))
	copy(hist, s.round.History)
	return Snapshot{
		ID:                s.ID,
		Player:            s.Player,
		RoundID:           s.round.ID,
		AttemptsRemaining: s.round.AttemptsRemaining,
		History:           hist,
		Status:            s.round.Status(),
		Stats:             s.stats,
	}
}
