// internal/game/types.go
//
// Core type definitions for the number-guessing round engine.
// Defines:
//   - Outcome: comparison result of a single guess against the secret.
//   - Status: coarse round state (playing/won/lost).
//   - Guess, GuessResult, Result: values produced by a round.
//   - Round: state for a single in-progress or finished round.

package game

// Outcome is the comparison of a guessed value against the secret.
// TooLow means the player should guess higher; TooHigh means lower.
type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeTooLow  Outcome = "too_low"
	OutcomeTooHigh Outcome = "too_high"
)

// Status is the coarse state of a round.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Terminal reports whether the status ends the round.
func (s Status) Terminal() bool { return s == StatusWon || s == StatusLost }

// Guess is one accepted attempt in a round's history.
type Guess struct {
	Value   int     `json:"value"`
	Outcome Outcome `json:"outcome"`
}

// GuessResult is returned for every accepted guess.
// Status doubles as the terminal signal: once it is won or lost the caller
// schedules the next round.
type GuessResult struct {
	Value             int     `json:"value"`
	Outcome           Outcome `json:"outcome"`
	AttemptsRemaining int     `json:"attemptsRemaining"`
	Status            Status  `json:"status"`
}

// Terminal reports whether this guess ended the round.
func (r GuessResult) Terminal() bool { return r.Status.Terminal() }

// Result summarizes a finished round for the leaderboard.
type Result struct {
	Player   string
	Won      bool
	Attempts int // guesses used
	Secret   int
}

// Round holds the state of a single round.
type Round struct {
	ID                string  // Unique round identifier (random hex string).
	Player            string  // Trimmed player name, fixed for the round.
	AttemptsRemaining int     // Starts at MaxAttempts, never below 0.
	History           []Guess // Accepted guesses in order.

	secret int
	won    bool
}
