// Package service implements the household, catalog, ledger and points
// operations on top of the store layer. Services return *apperr.Error for
// every expected failure.
package service

import (
	"log/slog"
	"time"

	"github.com/dukerupert/homecrew/internal/cursor"
	"github.com/dukerupert/homecrew/internal/store"
)

const (
	DefaultPINTTL      = 24 * time.Hour
	DailyChoreLimit    = 50
	DefaultEventLimit  = 20
	MaxEventLimit      = 100
	DefaultSummaryDays = 7
	MaxSummaryDays     = 366
)

type Config struct {
	PINTTL       time.Duration
	CursorSecret string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Services groups every service over one store.
type Services struct {
	Directory *Directory
	Catalog   *Catalog
	Ledger    *Ledger
	Points    *Points
}

func New(db *store.DB, cfg Config, logger *slog.Logger) *Services {
	if cfg.PINTTL <= 0 {
		cfg.PINTTL = DefaultPINTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Services{
		Directory: &Directory{db: db, now: cfg.Now, pinTTL: cfg.PINTTL, logger: logger.With("component", "directory")},
		Catalog:   &Catalog{db: db, now: cfg.Now, logger: logger.With("component", "catalog")},
		Ledger:    &Ledger{db: db, now: cfg.Now, logger: logger.With("component", "ledger")},
		Points:    &Points{db: db, now: cfg.Now, cursors: cursor.NewCodec(cfg.CursorSecret), logger: logger.With("component", "points")},
	}
}
