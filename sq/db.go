package sq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"
)

type Connection interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type DB struct {
	*sql.DB
	ConnectHook func(c *sqlite3.SQLiteConn) error
}

type PureFunc struct{ F any }

type MigrateError struct {
	Applied, Wanted int
}

var drivers = struct {
	n int
	sync.Mutex
}{}

func (e *MigrateError) Error() string {
	return fmt.Sprintf("schema needs to be rebuilt: %d migrations applied, %d wanted", e.Applied, e.Wanted)
}

// New opens uri and applies migrations. Connections run hook when they are
// opened, e.g. to install tokenizers via fts.ConnectHook.
func New(uri string, migrations []string, hook func(c *sqlite3.SQLiteConn) error) (*DB, error) {
	d, driver := &DB{ConnectHook: hook}, "sqlite3"
	if hook != nil {
		drivers.Lock()
		driver = fmt.Sprintf("sqlite3-%d", drivers.n)
		drivers.n++
		drivers.Unlock()
		sql.Register(driver, &sqlite3.SQLiteDriver{ConnectHook: hook})
	}
	db, err := sql.Open(driver, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open: %w", err)
	}
	d.DB = db
	if err := d.MigrateContext(context.Background(), migrations); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to migrate %q: %w", uri, err), db.Close())
	}
	return d, nil
}

// Hooks runs hooks in order and stops at the first error.
func Hooks(hooks ...func(c *sqlite3.SQLiteConn) error) func(c *sqlite3.SQLiteConn) error {
	return func(c *sqlite3.SQLiteConn) error {
		for _, h := range hooks {
			if err := h(c); err != nil {
				return err
			}
		}
		return nil
	}
}

func FuncHook(fs map[string]any) func(c *sqlite3.SQLiteConn) error {
	all := map[string]any{}
	maps.Copy(all, defaultFuncs)
	maps.Copy(all, fs)
	return func(c *sqlite3.SQLiteConn) error {
		for name, f := range all {
			v, isPure := f.(PureFunc)
			if isPure {
				f = v.F
			}
			if err := c.RegisterFunc(name, f, isPure); err != nil {
				return fmt.Errorf("failed to register func %q: %w", name, err)
			}
		}
		return nil
	}
}

func (db *DB) Migrate(migrations []string) error {
	return db.MigrateContext(context.Background(), migrations)
}

// MigrateContext applies the migrations that have not been applied yet.
// Applied migrations must be a prefix of migrations; anything else is a
// *MigrateError.
func (db *DB) MigrateContext(ctx context.Context, migrations []string) error {
	if migrations == nil {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, _, err := ExecContext(ctx, tx, `CREATE TABLE IF NOT EXISTS _migrations (sql TEXT)`); err != nil {
		return fmt.Errorf("failed to create _migrations table: %w", err)
	}
	applied, err := QueryContext[string](ctx, tx, "SELECT sql FROM _migrations ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("failed to query _migrations: %w", err)
	}
	if len(applied) > len(migrations) {
		return &MigrateError{len(applied), len(migrations)}
	}
	for i := range applied {
		if applied[i] != migrations[i] {
			return &MigrateError{len(applied), len(migrations)}
		}
	}
	for _, stmt := range migrations[len(applied):] {
		if _, _, err := ExecContext(ctx, tx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %q: %w", stmt, err)
		} else if _, _, err := ExecContext(ctx, tx, "INSERT INTO _migrations (sql) VALUES (?)", stmt); err != nil {
			return fmt.Errorf("failed to record migration %q: %w", stmt, err)
		}
	}
	if n := len(migrations) - len(applied); n > 0 {
		slog.DebugContext(ctx, "sq: applied migrations", "n", n, "total", len(migrations))
	}
	return tx.Commit()
}
