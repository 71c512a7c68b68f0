package sqlparse

import (
	"errors"
	"strings"
)

// ErrNotSelect is returned by ParseSelect for statements that do not
// start with SELECT.
var ErrNotSelect = errors.New("sqlparse: statement is not a SELECT")

// Direction of an ORDER BY item.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// OrderItem is one top-level ORDER BY item.
type OrderItem struct {
	Expr string    // expression text as written
	Dir  Direction // ASC when omitted
	// Column is set when Expr is a (possibly qualified) column reference;
	// it holds the unquoted segments.
	Column []string
}

// SelectItem is one top-level item of the select list.
type SelectItem struct {
	Expr  string // expression text without the alias
	Alias string // unquoted alias, empty when absent
	// Column is set when Expr is a (possibly qualified) column reference.
	Column []string
	// Star is set for "*" and "t.*".
	Star bool
}

// OutputName returns the name the item has in the result set: the alias,
// the column name of a column reference, or "".
func (s SelectItem) OutputName() string {
	if s.Alias != "" {
		return s.Alias
	}
	if len(s.Column) > 0 {
		return s.Column[len(s.Column)-1]
	}
	return ""
}

// Select is the structured form of the clauses of a SELECT statement that
// pagination rewriting needs. Offsets are byte positions in SQL.
type Select struct {
	SQL      string
	Distinct bool
	// Top is set when the select list is preceded by a TOP clause.
	Top bool
	// HeadEnd is the offset right after "SELECT" or "SELECT DISTINCT".
	HeadEnd int
	Items   []SelectItem
	Order   []OrderItem
	// OrderPos and OrderEnd delimit the top-level ORDER BY clause, both
	// -1 when there is none.
	OrderPos, OrderEnd int
}

// ParseSelect parses the head, the select list and the top-level ORDER BY
// clause of a single SELECT statement. Only the outermost level is
// inspected, so subqueries, function calls and CASE expressions are kept
// as opaque expression text.
func ParseSelect(sql string) (*Select, error) {
	all, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}
	toks := significant(all)
	if len(toks) == 0 || !toks[0].Is("SELECT") {
		return nil, ErrNotSelect
	}
	s := &Select{SQL: sql, HeadEnd: toks[0].End, OrderPos: -1, OrderEnd: -1}
	i := 1
	if i < len(toks) && (toks[i].Is("DISTINCT") || toks[i].Is("ALL")) {
		s.Distinct = toks[i].Is("DISTINCT")
		s.HeadEnd = toks[i].End
		i++
	}
	if i < len(toks) && toks[i].Is("TOP") {
		s.Top = true
		i++
		// TOP n, TOP (n) [PERCENT] [WITH TIES]
		if i < len(toks) && toks[i].Text == "(" {
			i = closing(toks, i) + 1
		} else {
			i++
		}
		for i < len(toks) && (toks[i].Is("PERCENT") || toks[i].Is("WITH") || toks[i].Is("TIES")) {
			i++
		}
	}
	end := len(toks)
	for j := i; j < len(toks); j++ {
		if toks[j].Depth == 0 && (toks[j].Is("FROM") || toks[j].Is("INTO")) {
			end = j
			break
		}
	}
	for _, part := range splitTop(toks[i:end]) {
		s.Items = append(s.Items, selectItem(sql, part))
	}
	if pos := lastTopLevel(toks, "ORDER", "BY"); pos >= 0 {
		j := pos + 2
		stop := len(toks)
		for k := j; k < len(toks); k++ {
			if toks[k].Depth == 0 && isOrderTerminator(toks[k]) {
				stop = k
				break
			}
		}
		if j >= stop {
			return nil, &SyntaxError{Pos: toks[pos].Pos, Msg: "empty ORDER BY"}
		}
		s.OrderPos = toks[pos].Pos
		s.OrderEnd = toks[stop-1].End
		for _, part := range splitTop(toks[j:stop]) {
			item, err := orderItem(sql, part)
			if err != nil {
				return nil, err
			}
			s.Order = append(s.Order, item)
		}
	}
	return s, nil
}

// WithoutOrder returns the statement text with the top-level ORDER BY
// clause removed.
func (s *Select) WithoutOrder() string {
	if s.OrderPos < 0 {
		return s.SQL
	}
	return strings.TrimRight(s.SQL[:s.OrderPos], " \t\r\n") + s.SQL[s.OrderEnd:]
}

// InsertAfterHead returns the statement with text inserted right after
// "SELECT" or "SELECT DISTINCT".
func (s *Select) InsertAfterHead(text string) string {
	return s.SQL[:s.HeadEnd] + text + s.SQL[s.HeadEnd:]
}

// HasStar reports whether the select list contains "*" or "alias.*".
func (s *Select) HasStar() bool {
	for _, it := range s.Items {
		if it.Star {
			return true
		}
	}
	return false
}

// Resolve maps an ORDER BY item to the name it has in the result set of
// the statement, so that an enclosing query can sort by it. It reports
// false when the sort key is not part of the result set.
func (s *Select) Resolve(o OrderItem) (string, bool) {
	for _, it := range s.Items {
		if it.Alias != "" && sameExpr(it.Expr, o.Expr) {
			return it.Alias, true
		}
	}
	if len(o.Column) == 1 {
		for _, it := range s.Items {
			if it.Alias != "" && strings.EqualFold(it.Alias, o.Column[0]) {
				return it.Alias, true
			}
		}
	}
	if len(o.Column) == 0 {
		return "", false
	}
	name := o.Column[len(o.Column)-1]
	if s.HasStar() {
		return name, true
	}
	for _, it := range s.Items {
		if it.Alias == "" && len(it.Column) > 0 && strings.EqualFold(it.Column[len(it.Column)-1], name) {
			return name, true
		}
	}
	return "", false
}

func isOrderTerminator(t Token) bool {
	for _, k := range []string{"LIMIT", "OFFSET", "FETCH", "FOR", "OPTION", "COMPUTE"} {
		if t.Is(k) {
			return true
		}
	}
	return t.Text == ";"
}

// lastTopLevel returns the index of the last top-level occurrence of the
// keyword pair, or -1.
func lastTopLevel(toks []Token, first, second string) int {
	for i := len(toks) - 2; i >= 0; i-- {
		if toks[i].Depth == 0 && toks[i].Is(first) && toks[i+1].Is(second) {
			return i
		}
	}
	return -1
}

// closing returns the index of the parenthesis closing the one at i.
func closing(toks []Token, i int) int {
	d := toks[i].Depth
	for j := i + 1; j < len(toks); j++ {
		if toks[j].Text == ")" && toks[j].Depth == d {
			return j
		}
	}
	return len(toks) - 1
}

// splitTop splits tokens on commas at the depth of the first token.
func splitTop(toks []Token) [][]Token {
	if len(toks) == 0 {
		return nil
	}
	d := toks[0].Depth
	var (
		parts [][]Token
		cur   []Token
	)
	for _, t := range toks {
		if t.Kind == Punct && t.Text == "," && t.Depth == d {
			parts = append(parts, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	return append(parts, cur)
}

func text(sql string, toks []Token) string {
	if len(toks) == 0 {
		return ""
	}
	return sql[toks[0].Pos:toks[len(toks)-1].End]
}

func selectItem(sql string, toks []Token) SelectItem {
	n := len(toks)
	switch {
	case n >= 3 && toks[n-2].Is("AS") && isName(toks[n-1]):
		expr := toks[:n-2]
		return SelectItem{Expr: text(sql, expr), Alias: Unquote(toks[n-1].Text), Column: columnRef(expr)}
	case n >= 2 && isName(toks[n-1]) && !isOperatorEnd(toks[n-2]) && columnRef(toks) == nil:
		// implicit alias: expr alias
		expr := toks[:n-1]
		return SelectItem{Expr: text(sql, expr), Alias: Unquote(toks[n-1].Text), Column: columnRef(expr)}
	}
	it := SelectItem{Expr: text(sql, toks), Column: columnRef(toks)}
	if n > 0 && toks[n-1].Text == "*" && (n == 1 || n >= 3 && toks[n-2].Text == ".") {
		it.Star = true
	}
	return it
}

func orderItem(sql string, toks []Token) (OrderItem, error) {
	if len(toks) == 0 {
		return OrderItem{}, &SyntaxError{Pos: 0, Msg: "empty ORDER BY item"}
	}
	item := OrderItem{Dir: Asc}
	n := len(toks)
	if n >= 3 && toks[n-2].Is("NULLS") && (toks[n-1].Is("FIRST") || toks[n-1].Is("LAST")) {
		return OrderItem{}, &SyntaxError{Pos: toks[n-2].Pos, Msg: "NULLS FIRST/LAST is not supported"}
	}
	switch {
	case toks[n-1].Is("ASC"):
		n--
	case toks[n-1].Is("DESC"):
		item.Dir = Desc
		n--
	}
	if n == 0 {
		return OrderItem{}, &SyntaxError{Pos: toks[0].Pos, Msg: "ORDER BY item without expression"}
	}
	item.Expr = text(sql, toks[:n])
	item.Column = columnRef(toks[:n])
	return item, nil
}

// columnRef returns the unquoted segments when toks form name(.name)*.
func columnRef(toks []Token) []string {
	if len(toks) == 0 || len(toks)%2 == 0 {
		return nil
	}
	var segs []string
	for i, t := range toks {
		if i%2 == 1 {
			if t.Text != "." {
				return nil
			}
			continue
		}
		if !isName(t) || isKeyword(t) {
			return nil
		}
		segs = append(segs, Unquote(t.Text))
	}
	return segs
}

func isName(t Token) bool {
	return t.Kind == Ident || t.Kind == Word && !isKeyword(t)
}

func isKeyword(t Token) bool {
	if t.Kind != Word {
		return false
	}
	switch strings.ToUpper(t.Text) {
	case "SELECT", "FROM", "WHERE", "AS", "AND", "OR", "NOT", "NULL", "CASE", "WHEN", "THEN",
		"ELSE", "END", "IS", "IN", "LIKE", "BETWEEN", "DISTINCT", "ORDER", "GROUP", "BY", "ASC", "DESC":
		return true
	}
	return false
}

// isOperatorEnd reports whether an expression cannot end with t, so a
// following name is an operand rather than an alias.
func isOperatorEnd(t Token) bool {
	if t.Kind == Punct {
		return t.Text != ")"
	}
	return isKeyword(t) && !t.Is("END")
}

// sameExpr compares two expressions ignoring identifier quoting, case and
// whitespace.
func sameExpr(a, b string) bool {
	return normalizeExpr(a) == normalizeExpr(b)
}

func normalizeExpr(s string) string {
	toks, err := Tokenize(s)
	if err != nil {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	var b strings.Builder
	for _, t := range significant(toks) {
		switch t.Kind {
		case Ident:
			b.WriteString(strings.ToLower(Unquote(t.Text)))
		case String:
			b.WriteString(t.Text)
		default:
			b.WriteString(strings.ToLower(t.Text))
		}
		b.WriteByte(' ')
	}
	return b.String()
}

// Unquote strips one level of identifier quoting ("x", `x` or [x]).
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case s[0] == '`' && s[len(s)-1] == '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case s[0] == '[' && s[len(s)-1] == ']':
		return s[1 : len(s)-1]
	}
	return s
}
