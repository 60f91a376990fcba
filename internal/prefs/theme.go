// Package prefs stores UI preferences next to the leaderboard in the local
// key-value store.
package prefs

import (
	"context"
	"fmt"

	"github.com/robalobadob/guessnumber/internal/store"
)

// ThemeKey holds "light" or "dark"; an absent value means dark.
const ThemeKey = "gtn_theme"

// Theme is the UI colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme validates a client-supplied theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeDark, ThemeLight:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Store reads and writes the theme preference.
type Store struct{ kv store.Store }

// New constructs a Store over kv.
func New(kv store.Store) *Store { return &Store{kv: kv} }

// Theme returns the saved theme. Anything other than "light" is dark.
func (s *Store) Theme(ctx context.Context) (Theme, error) {
	v, ok, err := s.kv.Get(ctx, ThemeKey)
	if err != nil {
		return ThemeDark, err
	}
	if ok && Theme(v) == ThemeLight {
		return ThemeLight, nil
	}
	return ThemeDark, nil
}

// SetTheme saves t. Only ThemeDark and ThemeLight are accepted.
func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return s.kv.Set(ctx, ThemeKey, string(t))
}
