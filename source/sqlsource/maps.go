package sqlsource

import "database/sql"

// MapConfig configures a Table over generic map rows, for callers that do not
// have (or want) a row struct — the bundled CLI is the main user.
type MapConfig struct {
	DB            *sql.DB
	Table         string
	Columns       []string
	IDColumn      string
	OrderBy       string
	SoftDelete    bool
	DeletedColumn string
}

// Maps builds a Table[map[string]any] that scans every configured column
// generically. []byte values are converted to string so the rows stay
// friendly to text codecs.
func Maps(cfg MapConfig) (*Table[map[string]any], error) {
	cols := append([]string(nil), cfg.Columns...)
	scan := func(rows *sql.Rows) (map[string]any, error) {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			m[c] = v
		}
		return m, nil
	}
	args := func(m map[string]any) []any {
		out := make([]any, len(cols))
		for i, c := range cols {
			out[i] = m[c]
		}
		return out
	}
	return New(Config[map[string]any]{
		DB:            cfg.DB,
		Table:         cfg.Table,
		Columns:       cols,
		Scan:          scan,
		Args:          args,
		IDColumn:      cfg.IDColumn,
		OrderBy:       cfg.OrderBy,
		SoftDelete:    cfg.SoftDelete,
		DeletedColumn: cfg.DeletedColumn,
	})
}
