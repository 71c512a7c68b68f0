package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syssam/schemakit/dialect"
)

// Row is one result row keyed by column name. Text values returned by the
// driver as []byte are converted to string.
type Row map[string]any

// String returns the column value as a string. NULL and missing columns
// yield "".
func (r Row) String(name string) string {
	switch v := r[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// NullString returns the column value and whether it was non-NULL.
func (r Row) NullString(name string) (string, bool) {
	if r[name] == nil {
		return "", false
	}
	return r.String(name), true
}

// Int64 returns the column value as an int64. NULL and non-numeric values
// yield 0.
func (r Row) Int64(name string) int64 {
	n, _ := toInt64(r[name])
	return n
}

// Bool reports whether the column value is truthy (1, true, "t", "y", "yes").
func (r Row) Bool(name string) bool {
	switch v := r[name].(type) {
	case bool:
		return v
	case nil:
		return false
	}
	if n, ok := toInt64(r[name]); ok {
		return n != 0
	}
	switch r.String(name) {
	case "t", "T", "true", "TRUE", "y", "Y", "yes", "YES":
		return true
	}
	return false
}

// Execute runs a statement that returns no rows and reports the number of
// affected rows.
func Execute(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) (int64, error) {
	var res sql.Result
	if err := ex.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	if res == nil {
		return 0, nil
	}
	return res.RowsAffected()
}

// QueryAll runs the query and returns every row.
func QueryAll(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) ([]Row, error) {
	var rows Rows
	if err := ex.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// QueryRow runs the query and returns its first row, or nil if the
// result is empty.
func QueryRow(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) (Row, error) {
	rs, err := QueryAll(ctx, ex, query, args...)
	if err != nil || len(rs) == 0 {
		return nil, err
	}
	return rs[0], nil
}

// QueryColumn runs the query and returns the first column of every row.
func QueryColumn(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) ([]any, error) {
	var rows Rows
	if err := ex.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var column []any
	for rows.Next() {
		vs := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vs {
			ptrs[i] = &vs[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		if len(vs) > 0 {
			column = append(column, normalize(vs[0]))
		}
	}
	return column, rows.Err()
}

// QueryStrings is QueryColumn with every value rendered as a string.
// NULL values are skipped.
func QueryStrings(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) ([]string, error) {
	column, err := QueryColumn(ctx, ex, query, args...)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(column))
	for _, v := range column {
		if v == nil {
			continue
		}
		names = append(names, Row{"v": v}.String("v"))
	}
	return names, nil
}

// ErrNoRows is returned by QueryScalar when the result is empty.
var ErrNoRows = sql.ErrNoRows

// QueryScalar runs the query and returns the first column of the first row.
func QueryScalar(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) (any, error) {
	column, err := QueryColumn(ctx, ex, query, args...)
	if err != nil {
		return nil, err
	}
	if len(column) == 0 {
		return nil, ErrNoRows
	}
	return column[0], nil
}

// QueryInt64 runs the query and returns the first column of the first row
// as an int64. NULL yields 0.
func QueryInt64(ctx context.Context, ex dialect.ExecQuerier, query string, args ...any) (int64, error) {
	v, err := QueryScalar(ctx, ex, query, args...)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("dialect/sql: scalar %v (%T) is not an integer", v, v)
	}
	return n, nil
}

// ScanRows reads every remaining row of rows into a slice of Row.
func ScanRows(rows ColumnScanner) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vs := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vs {
			ptrs[i] = &vs[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			r[c] = normalize(vs[i])
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string, []byte:
		var n int64
		_, err := fmt.Sscan(Row{"v": v}.String("v"), &n)
		return n, err == nil
	default:
		return 0, false
	}
}
