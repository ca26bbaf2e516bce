package sqlsource

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/veiloq/cascade/source"
)

type faqRow struct {
	ID       int64
	Question string
	Position int64
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // each connection gets its own :memory: database
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE faqs (
		id INTEGER PRIMARY KEY,
		question TEXT NOT NULL,
		position INTEGER NOT NULL,
		deleted_at TIMESTAMP
	)`)
	require.NoError(t, err)
	return db
}

func newTable(t *testing.T, db *sql.DB) *Table[faqRow] {
	t.Helper()
	tbl, err := New(Config[faqRow]{
		DB:         db,
		Table:      "faqs",
		Columns:    []string{"id", "question", "position"},
		IDColumn:   "id",
		OrderBy:    "position",
		SoftDelete: true,
		Scan: func(rows *sql.Rows) (faqRow, error) {
			var r faqRow
			err := rows.Scan(&r.ID, &r.Question, &r.Position)
			return r, err
		},
		Args: func(r faqRow) []any { return []any{r.ID, r.Question, r.Position} },
	})
	require.NoError(t, err)
	return tbl
}

func TestLoadAllOrders(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, openDB(t))

	// insert out of canonical order
	require.NoError(t, tbl.Insert(ctx, faqRow{ID: 1, Question: "second", Position: 2}))
	require.NoError(t, tbl.Insert(ctx, faqRow{ID: 2, Question: "first", Position: 1}))

	rows, err := tbl.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].Question)
	assert.Equal(t, "second", rows[1].Question)
}

func TestReplaceAllSwapsRows(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, openDB(t))

	require.NoError(t, tbl.Insert(ctx, faqRow{ID: 1, Question: "old", Position: 1}))
	require.NoError(t, tbl.ReplaceAll(ctx, []faqRow{
		{ID: 10, Question: "new a", Position: 1},
		{ID: 11, Question: "new b", Position: 2},
	}))

	rows, err := tbl.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(10), rows[0].ID)

	// empty replace leaves an empty table, not an error
	require.NoError(t, tbl.ReplaceAll(ctx, nil))
	rows, err = tbl.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, openDB(t))

	var ops []source.Op
	tbl.AfterCommit(func(_ context.Context, op source.Op) { ops = append(ops, op) })

	require.NoError(t, tbl.Insert(ctx, faqRow{ID: 1, Question: "a", Position: 1}))
	require.NoError(t, tbl.Insert(ctx, faqRow{ID: 2, Question: "b", Position: 2}))

	require.NoError(t, tbl.Delete(ctx, 1))
	rows, err := tbl.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].ID)

	// double delete finds nothing
	assert.ErrorIs(t, tbl.Delete(ctx, 1), ErrNotFound)

	require.NoError(t, tbl.Restore(ctx, 1))
	rows, err = tbl.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// restoring a live row finds nothing
	assert.ErrorIs(t, tbl.Restore(ctx, 1), ErrNotFound)

	assert.Equal(t, []source.Op{source.OpCreated, source.OpCreated, source.OpDeleted, source.OpRestored}, ops)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, openDB(t))

	var ops []source.Op
	tbl.AfterCommit(func(_ context.Context, op source.Op) { ops = append(ops, op) })

	require.NoError(t, tbl.Insert(ctx, faqRow{ID: 1, Question: "before", Position: 1}))
	require.NoError(t, tbl.Update(ctx, 1, faqRow{ID: 1, Question: "after", Position: 1}))

	rows, err := tbl.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "after", rows[0].Question)

	assert.ErrorIs(t, tbl.Update(ctx, 99, faqRow{ID: 99, Question: "x", Position: 9}), ErrNotFound)
	assert.Equal(t, []source.Op{source.OpCreated, source.OpUpdated}, ops)
}

func TestReplaceAllDoesNotFireHooks(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(t, openDB(t))

	fired := 0
	tbl.AfterCommit(func(context.Context, source.Op) { fired++ })

	require.NoError(t, tbl.ReplaceAll(ctx, []faqRow{{ID: 1, Question: "a", Position: 1}}))
	assert.Zero(t, fired, "ReplaceAll is the accessor's own write path")
}

func TestHardDeleteTable(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tbl, err := New(Config[faqRow]{
		DB:       db,
		Table:    "faqs",
		Columns:  []string{"id", "question", "position"},
		IDColumn: "id",
		Scan: func(rows *sql.Rows) (faqRow, error) {
			var r faqRow
			err := rows.Scan(&r.ID, &r.Question, &r.Position)
			return r, err
		},
		Args: func(r faqRow) []any { return []any{r.ID, r.Question, r.Position} },
	})
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(ctx, faqRow{ID: 1, Question: "a", Position: 1}))
	require.NoError(t, tbl.Delete(ctx, 1))

	rows, err := tbl.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.ErrorIs(t, tbl.Restore(ctx, 1), ErrNoSoftDelete)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tbl := newTable(t, db)
	assert.True(t, tbl.Exists(ctx), "created table should exist")

	_, err := db.Exec("DROP TABLE faqs")
	require.NoError(t, err)
	assert.False(t, tbl.Exists(ctx), "dropped table should not exist")
}

func TestMaps(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	tbl, err := Maps(MapConfig{
		DB:         db,
		Table:      "faqs",
		Columns:    []string{"id", "question", "position"},
		IDColumn:   "id",
		OrderBy:    "position",
		SoftDelete: true,
	})
	require.NoError(t, err)

	require.NoError(t, tbl.Insert(ctx, map[string]any{"id": 1, "question": "generic?", "position": 1}))
	rows, err := tbl.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "generic?", rows[0]["question"])
	assert.EqualValues(t, 1, rows[0]["id"])
}

func TestRejectsHostileIdentifiers(t *testing.T) {
	db := openDB(t)
	_, err := Maps(MapConfig{
		DB:      db,
		Table:   "faqs; DROP TABLE faqs",
		Columns: []string{"id"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid identifier")

	_, err = Maps(MapConfig{
		DB:      db,
		Table:   "faqs",
		Columns: []string{"question, position"},
	})
	require.Error(t, err)
}
