// internal/game/engine.go
//
// Core engine for a single number-guessing round.
// Responsibilities:
//   - Start rounds with a uniformly sampled secret in [MinValue, MaxValue].
//   - Validate and apply guesses (integer text, range, round not finished).
//   - Compare guesses against the secret and track attempts.
//   - Track state transitions: playing → won/lost.
//
// Notes:
//   - Validation failures never consume an attempt or touch history.
//   - Secrets come from math/rand/v2 and are not cryptographically secure.
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

const (
	MinValue    = 1
	MaxValue    = 100
	MaxAttempts = 10
)

var (
	// ErrInvalidInput is returned when the player name is empty after trimming.
	ErrInvalidInput = errors.New("invalid input")
	// ErrParse is returned when guess text is not an integer.
	ErrParse = errors.New("guess is not a number")
	// ErrRange is returned when a value falls outside [MinValue, MaxValue].
	ErrRange = errors.New("value out of range")
	// ErrIllegalState is returned when a finished round is asked to continue.
	ErrIllegalState = errors.New("round already finished")
)

// Engine starts rounds. It owns the random source used to pick secrets.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine constructs an engine drawing secrets from rng.
// A nil rng is replaced by a PCG generator seeded from crypto/rand.
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(seed(), seed()))
	}
	return &Engine{rng: rng}
}

// StartRound begins a fresh round for playerName.
// Returns ErrInvalidInput if the trimmed name is empty.
func (e *Engine) StartRound(playerName string) (*Round, error) {
	e.mu.Lock()
	secret := MinValue + e.rng.IntN(MaxValue-MinValue+1)
	e.mu.Unlock()
	return NewRound(playerName, secret)
}

// NewRound constructs a round with a fixed secret.
func NewRound(playerName string, secret int) (*Round, error) {
	name := strings.TrimSpace(playerName)
	if name == "" {
		return nil, fmt.Errorf("player name is required: %w", ErrInvalidInput)
	}
	if secret < MinValue || secret > MaxValue {
		return nil, fmt.Errorf("secret %d: %w", secret, ErrRange)
	}
	return &Round{
		ID:                randomID(),
		Player:            name,
		AttemptsRemaining: MaxAttempts,
		History:           []Guess{},
		secret:            secret,
	}, nil
}

// SubmitGuess validates raw input and applies it to the round.
//
// Validation order:
//   - Round must not be finished (ErrIllegalState).
//   - Trimmed text must parse as a base-10 integer (ErrParse).
//   - Value must be within [MinValue, MaxValue] (ErrRange).
//
// State transitions:
//   - Value equals the secret → won.
//   - Else if attempts reach 0 → lost.
func (r *Round) SubmitGuess(raw string) (GuessResult, error) {
	if r.IsTerminal() {
		return GuessResult{}, ErrIllegalState
	}
	text := strings.TrimSpace(raw)
	v, err := strconv.Atoi(text)
	if err != nil {
		return GuessResult{}, fmt.Errorf("%q: %w", text, ErrParse)
	}
	if v < MinValue || v > MaxValue {
		return GuessResult{}, fmt.Errorf("%d not in [%d,%d]: %w", v, MinValue, MaxValue, ErrRange)
	}

	outcome := compare(v, r.secret)
	r.AttemptsRemaining--
	r.History = append(r.History, Guess{Value: v, Outcome: outcome})
	if outcome == OutcomeCorrect {
		r.won = true
	}

	return GuessResult{
		Value:             v,
		Outcome:           outcome,
		AttemptsRemaining: r.AttemptsRemaining,
		Status:            r.Status(),
	}, nil
}

// IsTerminal reports whether the last guess won or attempts are exhausted.
func (r *Round) IsTerminal() bool {
	return r.won || r.AttemptsRemaining <= 0
}

// Status reports the coarse round state.
func (r *Round) Status() Status {
	switch {
	case r.won:
		return StatusWon
	case r.AttemptsRemaining <= 0:
		return StatusLost
	default:
		return StatusPlaying
	}
}

// Result returns the round summary. Only finished rounds have one.
func (r *Round) Result() (Result, error) {
	if !r.IsTerminal() {
		return Result{}, fmt.Errorf("round %s still playing: %w", r.ID, ErrIllegalState)
	}
	return Result{
		Player:   r.Player,
		Won:      r.won,
		Attempts: len(r.History),
		Secret:   r.secret,
	}, nil
}

// Secret exposes the secret once the round is over.
func (r *Round) Secret() (int, bool) {
	if !r.IsTerminal() {
		return 0, false
	}
	return r.secret, true
}

// compare orders a guess against the secret by value only.
func compare(guess, secret int) Outcome {
	switch {
	case guess == secret:
		return OutcomeCorrect
	case guess < secret:
		return OutcomeTooLow
	default:
		return OutcomeTooHigh
	}
}

// seed reads 8 bytes from crypto/rand for PCG seeding.
func seed() uint64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// randomID returns a compact 16‑hex‑char identifier.
func randomID() string {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return hex.EncodeToString(b[:])
}
