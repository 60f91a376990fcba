// internal/leaderboard/leaderboard.go
//
// Bounded, most-recent-first history of round outcomes kept in the local
// key-value store.
//
// Storage layout (single key, JSON array, newest first, at most Cap items):
//
//	[{"name":"Ada","result":"Success","success":1,"fail":0,"ts":1700000000000}, ...]
//
// List is forgiving: a missing, unreadable or unparsable value lists as
// empty, and records with an unknown result are skipped. Record and Clear
// wrap medium failures in ErrStorageUnavailable; Record never overwrites a
// board it could not read.

package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessnumber/internal/store"
)

const (
	// Key is the storage key holding the serialized board.
	Key = "gtn_leaderboard_v1"
	// Cap bounds the number of retained entries.
	Cap = 50
)

// ErrStorageUnavailable wraps any failure of the underlying medium in Record and Clear.
var ErrStorageUnavailable = errors.New("leaderboard storage unavailable")

// Outcome is the result of a finished round.
type Outcome string

const (
	Success Outcome = "Success"
	Fail    Outcome = "Fail"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool { return o == Success || o == Fail }

// Entry is one recorded round.
type Entry struct {
	Player    string
	Outcome   Outcome
	Timestamp time.Time
}

// record is the persisted shape of an Entry.
type record struct {
	Name    string  `json:"name"`
	Result  Outcome `json:"result"`
	Success int     `json:"success"`
	Fail    int     `json:"fail"`
	TS      int64   `json:"ts"`
}

func toRecord(e Entry) record {
	r := record{Name: e.Player, Result: e.Outcome, TS: e.Timestamp.UnixMilli()}
	if e.Outcome == Success {
		r.Success = 1
	} else {
		r.Fail = 1
	}
	return r
}

// MarshalJSON renders an entry in the persisted layout.
func (e Entry) MarshalJSON() ([]byte, error) { return json.Marshal(toRecord(e)) }

func (r record) entry() Entry {
	return Entry{Player: r.Name, Outcome: r.Result, Timestamp: time.UnixMilli(r.TS)}
}

// Store reads and writes the board through a key-value medium.
type Store struct {
	kv  store.Store
	now func() time.Time
	mu  sync.Mutex // serializes read-modify-write in Record
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New constructs a Store over kv.
func New(kv store.Store, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Record prepends an entry stamped with the current time and trims the
// board to Cap entries.
func (s *Store) Record(ctx context.Context, player string, outcome Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("unknown outcome %q", outcome)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	e := Entry{Player: player, Outcome: outcome, Timestamp: s.now()}
	recs = append([]record{toRecord(e)}, recs...)
	if len(recs) > Cap {
		recs = recs[:Cap]
	}

	b, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	if err := s.kv.Set(ctx, Key, string(b)); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// List returns entries newest first. It never fails.
func (s *Store) List(ctx context.Context) []Entry {
	recs, err := s.load(ctx)
	if err != nil {
		log.Warn().Err(err).Str("key", Key).Msg("read leaderboard, listing empty")
	}
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		if !r.Result.Valid() {
			log.Warn().Str("key", Key).Str("result", string(r.Result)).Msg("skipping leaderboard entry with unknown result")
			continue
		}
		out = append(out, r.entry())
	}
	return out
}

// Clear erases every entry. Clearing an empty board is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// load reads the stored records. Only a medium failure is an error; a
// missing or unparsable value is an empty board.
func (s *Store) load(ctx context.Context) ([]record, error) {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var recs []record
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		log.Warn().Err(err).Str("key", Key).Msg("corrupt leaderboard, treating as empty")
		return nil, nil
	}
	return recs, nil
}
