package schema

import (
	"context"
	"maps"

	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

// ReturnIDParam is the output parameter Oracle inserts bind the generated
// key to. It is also reported as the statement's sequence name.
const ReturnIDParam = "RETURN_ID"

// Statement is a synthesized SQL statement with named :placeholders and
// their values. It is never executed by the builder that produced it.
type Statement struct {
	SQL    string
	Params map[string]any
	// Dialect is the dialect the statement was built for.
	Dialect string
	// SequenceName is the sequence to read the generated key from after an
	// insert. Oracle inserts set it to ReturnIDParam.
	SequenceName *string
	// ReturnID receives the generated key of an Oracle insert after the
	// statement was executed. It belongs to this statement only.
	ReturnID *int64

	placeholder sqlparse.Placeholder
	lexer       []sqlparse.Option
}

// Bind rewrites the named placeholders into the positional form of the
// statement's dialect and returns the arguments in order.
func (s *Statement) Bind() (string, []any, error) {
	params := s.Params
	if s.ReturnID != nil {
		params = maps.Clone(s.Params)
		if params == nil {
			params = make(map[string]any, 1)
		}
		params[ReturnIDParam] = sql.Out{Dest: s.ReturnID}
	}
	return sqlparse.Bind(s.SQL, params, s.placeholder, s.lexer...)
}

// Execute binds and executes the statement and returns the number of
// affected rows.
func (s *Statement) Execute(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	query, args, err := s.Bind()
	if err != nil {
		return 0, err
	}
	return sql.Execute(ctx, ex, query, args...)
}

// QueryAll binds and runs the statement and returns every row.
func (s *Statement) QueryAll(ctx context.Context, ex dialect.ExecQuerier) ([]sql.Row, error) {
	query, args, err := s.Bind()
	if err != nil {
		return nil, err
	}
	return sql.QueryAll(ctx, ex, query, args...)
}

// QueryScalar binds and runs the statement and returns the first column of
// the first row.
func (s *Statement) QueryScalar(ctx context.Context, ex dialect.ExecQuerier) (any, error) {
	query, args, err := s.Bind()
	if err != nil {
		return nil, err
	}
	return sql.QueryScalar(ctx, ex, query, args...)
}

// String returns the statement text.
func (s *Statement) String() string { return s.SQL }
