package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/cart"
	"github.com/ahinestrog/cartengine/internal/catalog"
	"github.com/ahinestrog/cartengine/internal/config"
	"github.com/ahinestrog/cartengine/internal/notify"
	"github.com/ahinestrog/cartengine/internal/persistence"
	"github.com/ahinestrog/cartengine/internal/storage"
)

// app is one CLI run: a rehydrated cart with its writer and the catalog.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	out      io.Writer
	slot     storage.Slot
	store    *cart.Store
	writer   *persistence.Writer
	products *catalog.Cached
	db       *sql.DB
}

func newLogger(level zerolog.Level, verbose bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func openApp(ctx context.Context, cfg config.Config, log zerolog.Logger, out io.Writer) (*app, error) {
	slot, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	products, db, err := catalog.Open(ctx, cfg.Storage.SQLiteDriver, cfg.CatalogDBPath, cfg.CatalogCacheSize, log)
	if err != nil {
		_ = slot.Close()
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	store, writer := persistence.Open(ctx, slot, cfg.StorageKey, cfg.WriteQueue, log)
	a := &app{cfg: cfg, log: log, out: out, slot: slot, store: store, writer: writer, products: products, db: db}
	notify.NewToaster(log, a.printToast).Attach(store)
	return a, nil
}

func (a *app) printToast(t notify.Toast) {
	fmt.Fprintf(a.out, "%s %s\n", t.Title, t.Description)
}

// close drains the writer so the last mutation is on disk before exit.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
	defer cancel()
	werr := a.writer.Close(ctx)
	st := a.writer.Stats()
	a.log.Debug().Int64("written", st.Written).Int64("dropped", st.Dropped).Int64("failed", st.Failed).Msg("writer drained")
	_ = a.db.Close()
	_ = a.slot.Close()
	if werr != nil {
		return werr
	}
	if st.Failed > 0 {
		return fmt.Errorf("%d cart writes failed", st.Failed)
	}
	return nil
}
