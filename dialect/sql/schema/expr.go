package schema

// Expr is a raw SQL expression. Insert and update commands place it in
// the statement verbatim instead of binding it, and merge its parameters
// into the statement parameters.
//
//	cb.Update(users, map[string]any{"updated_at": schema.NewExpr("CURRENT_TIMESTAMP")}, c)
type Expr struct {
	SQL    string
	Params map[string]any
}

// NewExpr returns an expression. kv holds name/value pairs of the
// parameters it references.
func NewExpr(sql string, kv ...any) Expr {
	e := Expr{SQL: sql}
	if len(kv) > 0 {
		e.Params = (&Criteria{}).bindPairs(kv).Params
	}
	return e
}

// String returns the expression text.
func (e Expr) String() string { return e.SQL }

func asExpr(v any) (Expr, bool) {
	switch v := v.(type) {
	case Expr:
		return v, true
	case *Expr:
		if v != nil {
			return *v, true
		}
	}
	return Expr{}, false
}
