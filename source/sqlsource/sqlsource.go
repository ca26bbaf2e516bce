// Package sqlsource implements source.Source over database/sql: one table per
// logical key, full-replace writes, optional soft deletes, and post-commit
// hooks for row-level mutations. It is driver-agnostic; the test suite and the
// bundled CLI run it against modernc.org/sqlite.
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/veiloq/cascade/source"
)

var (
	// ErrNotFound is returned by row-level mutations that matched nothing.
	ErrNotFound = errors.New("sqlsource: row not found")

	ErrNoIDColumn   = errors.New("sqlsource: id column not configured")
	ErrNoSoftDelete = errors.New("sqlsource: soft delete not configured")
)

// identRe keeps config-supplied identifiers out of SQL injection territory;
// table and column names may come from a config file.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config[V any] struct {
	DB      *sql.DB
	Table   string
	Columns []string

	// Scan maps a result row (selected in Columns order) to V.
	Scan func(rows *sql.Rows) (V, error)
	// Args maps V to its column values (in Columns order) for writes.
	Args func(v V) []any

	// IDColumn enables the row-level mutations (Insert works without it,
	// Update/Delete/Restore need it).
	IDColumn string
	// OrderBy is the canonical ordering column, ascending. Empty means the
	// table's natural order.
	OrderBy string
	// SoftDelete marks rows deleted instead of removing them: LoadAll skips
	// marked rows, Delete marks, Restore unmarks.
	SoftDelete bool
	// DeletedColumn is the soft-delete marker column; "" => "deleted_at".
	DeletedColumn string
}

// Table is a Source over one SQL table. It also implements source.Observable:
// Insert/Update/Delete/Restore announce themselves to registered hooks after
// the statement commits.
type Table[V any] struct {
	db         *sql.DB
	cfg        Config[V]
	deletedCol string
	cols       string // joined column list

	mu    sync.Mutex
	hooks []source.Hook
}

var (
	_ source.Source[struct{}] = (*Table[struct{}])(nil)
	_ source.Observable       = (*Table[struct{}])(nil)
)

func New[V any](cfg Config[V]) (*Table[V], error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("sqlsource: db is required")
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("sqlsource: table is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("sqlsource: columns are required")
	}
	if cfg.Scan == nil || cfg.Args == nil {
		return nil, fmt.Errorf("sqlsource: scan and args mappers are required")
	}
	deletedCol := cfg.DeletedColumn
	if deletedCol == "" {
		deletedCol = "deleted_at"
	}
	idents := append([]string{cfg.Table}, cfg.Columns...)
	for _, opt := range []string{cfg.IDColumn, cfg.OrderBy} {
		if opt != "" {
			idents = append(idents, opt)
		}
	}
	if cfg.SoftDelete {
		idents = append(idents, deletedCol)
	}
	for _, id := range idents {
		if !identRe.MatchString(id) {
			return nil, fmt.Errorf("sqlsource: invalid identifier %q", id)
		}
	}
	return &Table[V]{
		db:         cfg.DB,
		cfg:        cfg,
		deletedCol: deletedCol,
		cols:       strings.Join(cfg.Columns, ", "),
	}, nil
}

// LoadAll returns the live rows in canonical order.
func (t *Table[V]) LoadAll(ctx context.Context) ([]V, error) {
	q := "SELECT " + t.cols + " FROM " + t.cfg.Table
	if t.cfg.SoftDelete {
		q += " WHERE " + t.deletedCol + " IS NULL"
	}
	if t.cfg.OrderBy != "" {
		q += " ORDER BY " + t.cfg.OrderBy + " ASC"
	}
	rows, err := t.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: load %s: %w", t.cfg.Table, err)
	}
	defer rows.Close()

	var out []V
	for rows.Next() {
		v, err := t.cfg.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlsource: scan %s: %w", t.cfg.Table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlsource: iterate %s: %w", t.cfg.Table, err)
	}
	return out, nil
}

// ReplaceAll deletes every row (including soft-deleted ones) and inserts the
// given rows, all in one transaction. It does not fire commit hooks; it is
// the accessor's own write path.
func (t *Table[V]) ReplaceAll(ctx context.Context, rows []V) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlsource: begin replace %s: %w", t.cfg.Table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+t.cfg.Table); err != nil {
		return fmt.Errorf("sqlsource: clear %s: %w", t.cfg.Table, err)
	}
	stmt, err := tx.PrepareContext(ctx, t.insertSQL())
	if err != nil {
		return fmt.Errorf("sqlsource: prepare insert %s: %w", t.cfg.Table, err)
	}
	defer stmt.Close()
	for _, v := range rows {
		if _, err := stmt.ExecContext(ctx, t.cfg.Args(v)...); err != nil {
			return fmt.Errorf("sqlsource: insert into %s: %w", t.cfg.Table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlsource: commit replace %s: %w", t.cfg.Table, err)
	}
	return nil
}

// Insert adds one row and fires OpCreated.
func (t *Table[V]) Insert(ctx context.Context, v V) error {
	if _, err := t.db.ExecContext(ctx, t.insertSQL(), t.cfg.Args(v)...); err != nil {
		return fmt.Errorf("sqlsource: insert into %s: %w", t.cfg.Table, err)
	}
	t.fire(ctx, source.OpCreated)
	return nil
}

// Update rewrites the row with the given id and fires OpUpdated.
func (t *Table[V]) Update(ctx context.Context, id any, v V) error {
	if t.cfg.IDColumn == "" {
		return ErrNoIDColumn
	}
	sets := make([]string, len(t.cfg.Columns))
	for i, c := range t.cfg.Columns {
		sets[i] = c + " = ?"
	}
	q := "UPDATE " + t.cfg.Table + " SET " + strings.Join(sets, ", ") +
		" WHERE " + t.cfg.IDColumn + " = ?"
	args := append(t.cfg.Args(v), id)
	res, err := t.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("sqlsource: update %s: %w", t.cfg.Table, err)
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	t.fire(ctx, source.OpUpdated)
	return nil
}

// Delete removes the row with the given id (or marks it when soft deletes are
// on) and fires OpDeleted.
func (t *Table[V]) Delete(ctx context.Context, id any) error {
	if t.cfg.IDColumn == "" {
		return ErrNoIDColumn
	}
	var (
		res sql.Result
		err error
	)
	if t.cfg.SoftDelete {
		q := "UPDATE " + t.cfg.Table + " SET " + t.deletedCol + " = ?" +
			" WHERE " + t.cfg.IDColumn + " = ? AND " + t.deletedCol + " IS NULL"
		res, err = t.db.ExecContext(ctx, q, time.Now().UTC(), id)
	} else {
		q := "DELETE FROM " + t.cfg.Table + " WHERE " + t.cfg.IDColumn + " = ?"
		res, err = t.db.ExecContext(ctx, q, id)
	}
	if err != nil {
		return fmt.Errorf("sqlsource: delete from %s: %w", t.cfg.Table, err)
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	t.fire(ctx, source.OpDeleted)
	return nil
}

// Restore unmarks a soft-deleted row and fires OpRestored.
func (t *Table[V]) Restore(ctx context.Context, id any) error {
	if !t.cfg.SoftDelete {
		return ErrNoSoftDelete
	}
	if t.cfg.IDColumn == "" {
		return ErrNoIDColumn
	}
	q := "UPDATE " + t.cfg.Table + " SET " + t.deletedCol + " = NULL" +
		" WHERE " + t.cfg.IDColumn + " = ? AND " + t.deletedCol + " IS NOT NULL"
	res, err := t.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("sqlsource: restore in %s: %w", t.cfg.Table, err)
	}
	if affected(res) == 0 {
		return ErrNotFound
	}
	t.fire(ctx, source.OpRestored)
	return nil
}

// Exists reports whether the backing table is present and queryable, e.g. to
// skip lookups while migrations have not run yet.
func (t *Table[V]) Exists(ctx context.Context) bool {
	var one int
	err := t.db.QueryRowContext(ctx, "SELECT 1 FROM "+t.cfg.Table+" LIMIT 1").Scan(&one)
	return err == nil || errors.Is(err, sql.ErrNoRows)
}

// AfterCommit registers a hook for row-level mutations.
func (t *Table[V]) AfterCommit(h source.Hook) {
	t.mu.Lock()
	t.hooks = append(t.hooks, h)
	t.mu.Unlock()
}

func (t *Table[V]) fire(ctx context.Context, op source.Op) {
	t.mu.Lock()
	hs := make([]source.Hook, len(t.hooks))
	copy(hs, t.hooks)
	t.mu.Unlock()
	for _, h := range hs {
		h(ctx, op)
	}
}

func (t *Table[V]) insertSQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.cfg.Columns)), ", ")
	return "INSERT INTO " + t.cfg.Table + " (" + t.cols + ") VALUES (" + marks + ")"
}

func affected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		// driver cannot say; assume the statement did its job
		return 1
	}
	return n
}
