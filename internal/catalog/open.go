package catalog

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/ahinestrog/cartengine/internal/storage"
)

// Open migrates and seeds the catalog database and wraps it in a cache.
// The returned *sql.DB is the caller's to close.
func Open(ctx context.Context, driver, dbPath string, cacheSize int, log zerolog.Logger) (*Cached, *sql.DB, error) {
	db, err := storage.OpenDB(driver, dbPath)
	if err != nil {
		return nil, nil, err
	}
	repo := NewSQLiteRepo(db)
	if err := repo.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	n, err := repo.Seed(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if n > 0 {
		log.Info().Int("products", n).Str("db", dbPath).Msg("seeded catalog")
	}
	cached, err := NewCached(repo, cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return cached, db, nil
}
