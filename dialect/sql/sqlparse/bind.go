package sqlparse

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder is a positional parameter style.
type Placeholder int

// Placeholder styles.
const (
	Question Placeholder = iota // ? (MySQL, SQLite)
	Dollar                      // $1 (PostgreSQL)
	AtP                         // @p1 (SQL Server)
	Colon                       // :1 (Oracle)
)

func (p Placeholder) format(n int) string {
	switch p {
	case Dollar:
		return "$" + strconv.Itoa(n)
	case AtP:
		return "@p" + strconv.Itoa(n)
	case Colon:
		return ":" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// MissingParamError is returned by Bind when a placeholder has no value.
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("sqlparse: no value bound for placeholder :%s", e.Name)
}

// Bind rewrites the :name placeholders of sql into the positional style p
// and returns the values in placeholder order. Placeholders inside quoted
// literals, identifiers and comments are left untouched, as is the
// PostgreSQL :: cast operator. Every occurrence gets its own position.
// opts configure the lexer, such as BackslashEscapes for MySQL.
func Bind(sql string, params map[string]any, p Placeholder, opts ...Option) (string, []any, error) {
	toks, err := Tokenize(sql, opts...)
	if err != nil {
		return "", nil, err
	}
	var (
		b    strings.Builder
		args []any
		last int
	)
	for _, t := range toks {
		if t.Kind != Param {
			continue
		}
		v, ok := lookup(params, t.Name())
		if !ok {
			return "", nil, &MissingParamError{Name: t.Name()}
		}
		args = append(args, v)
		b.WriteString(sql[last:t.Pos])
		b.WriteString(p.format(len(args)))
		last = t.End
	}
	if last == 0 && len(args) == 0 {
		return sql, nil, nil
	}
	b.WriteString(sql[last:])
	return b.String(), args, nil
}

// Params returns the distinct placeholder names of sql in order of first
// appearance.
func Params(sql string, opts ...Option) ([]string, error) {
	toks, err := Tokenize(sql, opts...)
	if err != nil {
		return nil, err
	}
	var (
		names []string
		seen  = make(map[string]bool)
	)
	for _, t := range toks {
		if t.Kind == Param && !seen[t.Name()] {
			seen[t.Name()] = true
			names = append(names, t.Name())
		}
	}
	return names, nil
}

// lookup accepts keys written with or without the leading colon.
func lookup(params map[string]any, name string) (any, bool) {
	if v, ok := params[name]; ok {
		return v, true
	}
	v, ok := params[":"+name]
	return v, ok
}
