package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/schemakit"
	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

// nativeLimit appends LIMIT and OFFSET clauses.
type nativeLimit struct {
	// offsetOnly is the clause preceding OFFSET when no limit is given,
	// empty when OFFSET may stand alone.
	offsetOnly string
}

func (p nativeLimit) ApplyLimit(sql string, limit, offset int) (string, error) {
	switch {
	case limit > 0:
		sql += " LIMIT " + strconv.Itoa(limit)
	case offset > 0 && p.offsetOnly != "":
		sql += " " + p.offsetOnly
	}
	if offset > 0 {
		sql += " OFFSET " + strconv.Itoa(offset)
	}
	return sql, nil
}

// oracleLimit numbers the rows of the statement with ROWNUM in a CTE and
// filters on the row number.
type oracleLimit struct{}

func (oracleLimit) ApplyLimit(sql string, limit, offset int) (string, error) {
	var filters []string
	if offset > 0 {
		filters = append(filters, "rowNumId > "+strconv.Itoa(offset))
	}
	if limit > 0 {
		filters = append(filters, "rownum <= "+strconv.Itoa(limit))
	}
	if len(filters) == 0 {
		return sql, nil
	}
	return "WITH USER_SQL AS (" + sql + "),\n" +
		"\tPAGINATION AS (SELECT USER_SQL.*, rownum as rowNumId FROM USER_SQL)\n" +
		"SELECT *\n" +
		"FROM PAGINATION\n" +
		" WHERE " + strings.Join(filters, " and "), nil
}

// mssqlLimit emulates LIMIT with TOP. An offset selects the first
// limit+offset rows, keeps the trailing rows in reversed order and sorts
// them back.
type mssqlLimit struct{}

func (mssqlLimit) ApplyLimit(sql string, limit, offset int) (string, error) {
	if limit <= 0 && offset <= 0 {
		return sql, nil
	}
	if limit <= 0 {
		return "", unsupportedOffset("an offset requires a limit")
	}
	s, err := sqlparse.ParseSelect(sql)
	if err != nil {
		return "", unsupportedOffset(err.Error())
	}
	if offset <= 0 {
		if s.Top {
			return sql, nil
		}
		return s.InsertAfterHead(" TOP " + strconv.Itoa(limit)), nil
	}
	p, err := planPage(s, limit, offset)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

func unsupportedOffset(reason string) error {
	return &schemakit.UnsupportedError{Dialect: dialect.MSSQL, Op: "limit/offset", Reason: reason}
}

// sortKey is an ORDER BY item resolved to a column of the result set.
type sortKey struct {
	name string
	dir  sqlparse.Direction
}

// pagePlan is the rewrite of a statement with offset for SQL Server.
type pagePlan struct {
	inner string // statement bounded to limit+offset rows
	skip  int
	order []sortKey
}

func planPage(s *sqlparse.Select, limit, offset int) (*pagePlan, error) {
	if s.Top {
		return nil, unsupportedOffset("statement already has a TOP clause")
	}
	if len(s.Order) == 0 {
		return nil, unsupportedOffset("an offset requires an ORDER BY clause")
	}
	p := &pagePlan{
		inner: s.InsertAfterHead(" TOP " + strconv.Itoa(limit+offset)),
		skip:  offset,
	}
	for _, o := range s.Order {
		name, ok := s.Resolve(o)
		if !ok {
			return nil, unsupportedOffset(fmt.Sprintf("ORDER BY item %q is not in the select list", o.Expr))
		}
		p.order = append(p.order, sortKey{name: name, dir: o.Dir})
	}
	return p, nil
}

// String renders the plan. The middle query takes at most count-skip
// rows, so a short last page does not repeat rows of the previous one.
func (p *pagePlan) String() string {
	skip := strconv.Itoa(p.skip)
	top := "SELECT CASE WHEN COUNT(*) > " + skip + " THEN COUNT(*) - " + skip + " ELSE 0 END FROM (" +
		p.inner + ") AS [__count__]"
	middle := "SELECT TOP (" + top + ") * FROM (" + p.inner + ") AS [__inner__] ORDER BY " +
		p.orderBy("[__inner__]", true)
	return "SELECT * FROM (" + middle + ") AS [__outer__] ORDER BY " + p.orderBy("[__outer__]", false)
}

func (p *pagePlan) orderBy(alias string, reverse bool) string {
	items := make([]string, len(p.order))
	for i, k := range p.order {
		dir := k.dir
		if reverse {
			dir = dir.Reverse()
		}
		items[i] = alias + ".[" + strings.ReplaceAll(k.name, "]", "]]") + "] " + string(dir)
	}
	return strings.Join(items, ", ")
}
