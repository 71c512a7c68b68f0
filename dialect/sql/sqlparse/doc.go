// Package sqlparse is a small SQL-aware lexer used to rewrite statements
// produced by the command builder.
//
// It understands quoted literals and identifiers of every supported
// dialect, comments, parentheses and :name placeholders, which is enough
// to locate top-level clauses without being fooled by keywords inside
// strings or subqueries. It is not a SQL parser: expressions are kept as
// opaque text.
//
//	sel, err := sqlparse.ParseSelect("SELECT t.id, t.name AS n FROM users t ORDER BY n DESC")
//	// sel.Order == []OrderItem{{Expr: "n", Dir: Desc, Column: []string{"n"}}}
//
//	q, args, err := sqlparse.Bind("SELECT * FROM users WHERE id=:id", map[string]any{"id": 1}, sqlparse.Dollar)
//	// q == "SELECT * FROM users WHERE id=$1", args == []any{1}
package sqlparse
