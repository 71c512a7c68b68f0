package schema

import (
	"context"
	"strings"

	"github.com/syssam/schemakit"
	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

// queryRows runs a catalog query whose :name parameters are bound in the
// placeholder style p.
func queryRows(ctx context.Context, ex dialect.ExecQuerier, p sqlparse.Placeholder, query string, params map[string]any) ([]sql.Row, error) {
	q, args, err := sqlparse.Bind(query, params, p)
	if err != nil {
		return nil, err
	}
	return sql.QueryAll(ctx, ex, q, args...)
}

// loadFailed classifies the error of an introspection query. A missing
// table means absence; anything else fails the load.
func loadFailed(t *Table, op string, err error) (bool, error) {
	if sql.IsUndefinedTable(err) {
		return false, nil
	}
	return false, schemakit.NewMetadataError(t.Name, op, err)
}

func listFailed(op string, err error) error {
	return schemakit.NewMetadataError("", op, err)
}

// rawDefault returns the default column of a metadata row, nil for NULL.
func rawDefault(r sql.Row, name string) *string {
	if s, ok := r.NullString(name); ok {
		return &s
	}
	return nil
}

// qualify prefixes name with schema unless schema is the default one.
func qualify(schema, defaultSchema, name string) string {
	if schema == "" || schema == defaultSchema {
		return name
	}
	return schema + "." + name
}

// splitQualified splits a possibly quoted qualified name into unquoted
// segments.
func splitQualified(name string) []string {
	parts := splitName(strings.TrimSpace(name))
	for i, p := range parts {
		parts[i] = unquoteSegment(p)
	}
	return parts
}

// quoteLiteral renders s as a single quoted string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
