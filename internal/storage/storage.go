package storage

import (
	"context"
	"time"

	"github.com/Habibullo22/Kinouz/pkg/logx"
)

type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Movie is a stored, code-addressable media record.
type Movie struct {
	Code    string
	Title   string
	FileID  string
	AddedBy int64
	AddedAt time.Time
}

// Store is the persistence API used by the router, broadcast and digest.
// Every call is transactional on its own: it either fully applies or has no
// effect.
type Store interface {
	// AddUser registers a user if not yet known. Existing rows are untouched.
	AddUser(ctx context.Context, userID int64) error
	UserCount(ctx context.Context) (int64, error)
	// AllUserIDs returns a snapshot of every registered user id.
	AllUserIDs(ctx context.Context) ([]int64, error)

	// UpsertMovie inserts or fully replaces the record for movie.Code.
	UpsertMovie(ctx context.Context, m Movie) error
	GetMovie(ctx context.Context, code string) (Movie, bool, error)
	// DeleteMovie reports whether a record existed for the code.
	DeleteMovie(ctx context.Context, code string) (bool, error)
	MovieCount(ctx context.Context) (int64, error)

	Close() error
}

// Open initializes the SQLite store, running migrations. A failure here is
// startup-fatal for the caller.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	return openSQLite(cfg, log)
}
