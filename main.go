package main

import (
	"database/sql"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessnumber/internal/config"
	"github.com/robalobadob/guessnumber/internal/game"
	"github.com/robalobadob/guessnumber/internal/httpserver"
	"github.com/robalobadob/guessnumber/internal/leaderboard"
	"github.com/robalobadob/guessnumber/internal/prefs"
	"github.com/robalobadob/guessnumber/internal/session"
	"github.com/robalobadob/guessnumber/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	kv, db, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("failed to open storage")
	}
	if db != nil {
		defer db.Close()
	}

	board := leaderboard.New(kv)
	sessions := session.NewRegistry(game.NewEngine(nil), board, session.WithTTL(cfg.SessionTTL))
	go pruneSessions(sessions, time.Minute)
	srv := httpserver.New(cfg, sessions, board, prefs.New(kv))

	log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage).Msg("starting guessnumber server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// pruneSessions evicts idle sessions every interval.
func pruneSessions(reg *session.Registry, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		if n := reg.Prune(); n > 0 {
			log.Debug().Int("evicted", n).Int("live", reg.Len()).Msg("pruned idle sessions")
		}
	}
}

// openStore picks the key-value medium named by STORAGE.
// The returned *sql.DB is nil for the memory store.
func openStore(cfg config.Config) (store.Store, *sql.DB, error) {
	if cfg.Storage == "memory" {
		log.Warn().Msg("memory storage: leaderboard is lost on restart")
		return store.NewMemoryStore(), nil, nil
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store.NewSQLiteStore(db), db, nil
}
