package source

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"modstream/internal/errors"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS modules (
	location TEXT PRIMARY KEY,
	source   TEXT NOT NULL,
	size     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore loads modules from a SQLite snapshot: a single file holding a
// package tree keyed by absolute location.
type SQLiteStore struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// OpenSQLiteStore opens or creates a snapshot database at dbPath.
func OpenSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(snapshotSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}

	logger.Debug("Opened snapshot database", "path", dbPath)

	return &SQLiteStore{conn: conn, logger: logger, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, location string) (string, error) {
	var text string
	err := s.conn.QueryRowContext(ctx,
		"SELECT source FROM modules WHERE location = ?", path.Clean(location)).Scan(&text)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return "", errors.Errorf(errors.LoadError, "%s is not in snapshot %s", location, s.dbPath)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", errors.NewBundleError(errors.LoadError, "cannot load "+location, err)
	}
	return text, nil
}

// Root returns the package root recorded by Import, or "" for an empty
// snapshot.
func (s *SQLiteStore) Root(ctx context.Context) (string, error) {
	var root string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM snapshot_meta WHERE key = 'root'").Scan(&root)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return root, err
}

// Import replaces the snapshot with every module under root from src, in a
// single transaction. It returns the number of modules stored.
func (s *SQLiteStore) Import(ctx context.Context, src *FSStore, root string) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM modules"); err != nil {
			return fmt.Errorf("failed to clear snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO snapshot_meta (key, value) VALUES ('root', ?)", path.Clean(root)); err != nil {
			return err
		}
		return src.Walk(root, func(location string) error {
			text, err := src.Load(ctx, location)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO modules (location, source, size) VALUES (?, ?, ?)",
				path.Clean(location), text, len(text)); err != nil {
				return fmt.Errorf("failed to store %s: %w", location, err)
			}
			count++
			s.logger.Debug("Stored module", "location", location, "bytes", len(text))
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// withTx executes fn within a transaction, rolling back on error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", err, "rollback_error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
