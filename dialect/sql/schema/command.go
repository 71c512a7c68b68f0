package schema

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/schemakit"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

// Parameter name prefixes of generated placeholders.
const (
	paramPrefix       = "yp"
	columnParamPrefix = "ycp"
)

// errNilTable is returned when a command is built for a table that was
// not found.
var errNilTable = errors.New("schema: nil table")

// CommandBuilder builds the statements of one dialect from table
// descriptors and criteria. It holds no per-call state and is safe for
// concurrent use.
type CommandBuilder struct {
	d *Dialect
}

// NewCommandBuilder returns a command builder for the dialect.
func NewCommandBuilder(d *Dialect) *CommandBuilder {
	return &CommandBuilder{d: d}
}

// Dialect returns the dialect the builder renders.
func (b *CommandBuilder) Dialect() *Dialect { return b.d }

func (b *CommandBuilder) statement(query string, params map[string]any) *Statement {
	if params == nil {
		params = make(map[string]any)
	}
	return &Statement{SQL: query, Params: params, Dialect: b.d.Name, placeholder: b.d.placeholder, lexer: b.d.lexer}
}

// Find builds the SELECT statement of the criteria.
func (b *CommandBuilder) Find(t *Table, c *Criteria) (*Statement, error) {
	if t == nil {
		return nil, errNilTable
	}
	c = b.checkCriteria(t, c.Clone())
	alias := b.d.QuoteTableName(c.alias())
	sel := c.selectList()
	if sel == "*" && c.Join != "" {
		cols := make([]string, len(t.ColumnNames))
		for i, name := range t.ColumnNames {
			cols[i] = alias + "." + b.d.QuoteColumnName(name)
		}
		sel = strings.Join(cols, ", ")
	}
	query := selectHead(c.Distinct) + " " + sel + " FROM " + t.RawName + " " + alias
	query = b.applyJoin(query, c.Join)
	query = applyClause(query, "WHERE", c.Condition)
	query = applyClause(query, "GROUP BY", c.Group)
	query = applyClause(query, "HAVING", c.Having)
	query = applyClause(query, "ORDER BY", c.Order)
	query, err := b.d.ApplyLimit(query, c.limit(), c.offset())
	if err != nil {
		return nil, err
	}
	return b.statement(query, c.Params), nil
}

// checkCriteria orders by primary key when the dialect needs an ordering
// to apply an offset.
func (b *CommandBuilder) checkCriteria(t *Table, c *Criteria) *Criteria {
	if !b.d.rules.orderForOffset || c.offset() <= 0 || c.Order != "" || len(t.PrimaryKey) == 0 {
		return c
	}
	alias := b.d.QuoteTableName(c.alias())
	keys := make([]string, len(t.PrimaryKey))
	for i, pk := range t.PrimaryKey {
		keys[i] = alias + "." + b.d.QuoteColumnName(pk)
	}
	c.Order = strings.Join(keys, ", ")
	return c
}

// Count builds the statement counting the rows matched by the criteria.
// Ordering and pagination are ignored.
func (b *CommandBuilder) Count(t *Table, c *Criteria) (*Statement, error) {
	if t == nil {
		return nil, errNilTable
	}
	c = c.Clone()
	alias := b.d.QuoteTableName(c.alias())
	from := " FROM " + t.RawName + " " + alias
	var query string
	switch sel := c.selectList(); {
	case c.Group != "" || c.Having != "":
		query = selectHead(c.Distinct) + " " + sel + from
		query = b.applyJoin(query, c.Join)
		query = applyClause(query, "WHERE", c.Condition)
		query = applyClause(query, "GROUP BY", c.Group)
		query = applyClause(query, "HAVING", c.Having)
		query = "SELECT COUNT(*) FROM (" + query + ") sq"
	case strings.HasPrefix(strings.ToLower(strings.TrimSpace(sel)), "count"):
		query = b.applyJoin("SELECT "+sel+from, c.Join)
		query = applyClause(query, "WHERE", c.Condition)
	case c.Distinct && len(t.PrimaryKey) == 1:
		query = b.applyJoin("SELECT COUNT(DISTINCT "+alias+"."+b.d.QuoteColumnName(t.PrimaryKey[0])+")"+from, c.Join)
		query = applyClause(query, "WHERE", c.Condition)
	case c.Distinct:
		// composite or missing key: count the distinct rows of a subquery
		cols := sel
		if len(t.PrimaryKey) > 1 {
			keys := make([]string, len(t.PrimaryKey))
			for i, pk := range t.PrimaryKey {
				keys[i] = alias + "." + b.d.QuoteColumnName(pk)
			}
			cols = strings.Join(keys, ", ")
		}
		query = b.applyJoin("SELECT DISTINCT "+cols+from, c.Join)
		query = applyClause(query, "WHERE", c.Condition)
		query = "SELECT COUNT(*) FROM (" + query + ") sq"
	default:
		query = b.applyJoin("SELECT COUNT(*)"+from, c.Join)
		query = applyClause(query, "WHERE", c.Condition)
	}
	params, err := referencedParams(query, c.Params)
	if err != nil {
		return nil, err
	}
	return b.statement(query, params), nil
}

// referencedParams drops the parameters the query does not reference,
// such as those only used by the ordering or the select list.
func referencedParams(query string, params map[string]any) (map[string]any, error) {
	names, err := sqlparse.Params(query)
	if err != nil {
		return nil, err
	}
	used := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := params[name]; ok {
			used[name] = v
		} else if v, ok := params[":"+name]; ok {
			used[":"+name] = v
		}
	}
	return used, nil
}

// Insert builds the INSERT statement of a row. Keys that are not columns
// of the table are ignored, as are nil values of NOT NULL columns.
func (b *CommandBuilder) Insert(t *Table, data map[string]any) (*Statement, error) {
	if t == nil {
		return nil, errNilTable
	}
	var (
		fields, values []string
		params         = make(map[string]any)
		n              int
	)
	for _, c := range t.OrderedColumns() {
		v, ok := data[c.Name]
		if !ok || v == nil && !c.AllowNull {
			continue
		}
		fields = append(fields, c.RawName)
		if e, ok := asExpr(v); ok {
			values = append(values, e.SQL)
			maps.Copy(params, e.Params)
			continue
		}
		name := paramPrefix + strconv.Itoa(n)
		n++
		values = append(values, ":"+name)
		params[name] = c.Typecast(v)
	}
	var query string
	switch {
	case len(fields) > 0:
		query = "INSERT INTO " + t.RawName + " (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")"
	case len(t.PrimaryKey) == 0:
		return nil, schemakit.NewNoColumnsError(t.Name, "inserted")
	case b.d.rules.emptyInsert != nil:
		query = b.d.rules.emptyInsert(t)
	default:
		for _, pk := range t.PrimaryKey {
			c, ok := t.Column(pk)
			if !ok {
				return nil, fmt.Errorf("schema: table %q has no primary key column %q", t.Name, pk)
			}
			fields = append(fields, c.RawName)
			values = append(values, b.d.rules.pkDefault)
		}
		query = "INSERT INTO " + t.RawName + " (" + strings.Join(fields, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")"
	}
	stmt := b.statement(query, params)
	if pk, ok := t.SinglePrimaryKey(); ok && b.d.rules.returning && pk.Type != TypeString {
		stmt.SQL += " RETURNING " + pk.RawName + " INTO :" + ReturnIDParam
		stmt.SequenceName = strp(ReturnIDParam)
		stmt.ReturnID = new(int64)
	}
	return stmt, nil
}

// MultipleInsert builds one statement inserting every row. The columns
// are the known keys of all rows in table order; rows lacking one of them
// insert the dialect's missing value.
func (b *CommandBuilder) MultipleInsert(t *Table, rows []map[string]any) (*Statement, error) {
	if t == nil {
		return nil, errNilTable
	}
	var cols []*Column
	for _, c := range t.OrderedColumns() {
		for _, r := range rows {
			if _, ok := r[c.Name]; ok {
				cols = append(cols, c)
				break
			}
		}
	}
	if len(cols) == 0 {
		return nil, schemakit.NewNoColumnsError(t.Name, "inserted")
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.RawName
	}
	var (
		params = make(map[string]any)
		tuples = make([]string, 0, len(rows))
		n      int
	)
	for _, r := range rows {
		values := make([]string, len(cols))
		for i, c := range cols {
			v, ok := r[c.Name]
			if !ok {
				values[i] = b.d.rules.missingValue
				continue
			}
			if e, ok := asExpr(v); ok {
				values[i] = e.SQL
				maps.Copy(params, e.Params)
				continue
			}
			name := paramPrefix + strconv.Itoa(n)
			n++
			values[i] = ":" + name
			params[name] = c.Typecast(v)
		}
		tuples = append(tuples, "("+strings.Join(values, ", ")+")")
	}
	columns := " (" + strings.Join(names, ", ") + ")"
	if b.d.rules.insertAll {
		into := make([]string, len(tuples))
		for i, tuple := range tuples {
			into[i] = "INTO " + t.RawName + columns + " VALUES " + tuple
		}
		return b.statement("INSERT ALL "+strings.Join(into, " ")+" SELECT * FROM dual", params), nil
	}
	return b.statement("INSERT INTO "+t.RawName+columns+" VALUES "+strings.Join(tuples, ", "), params), nil
}

// Update builds the UPDATE statement setting data on the rows matched by
// the criteria.
func (b *CommandBuilder) Update(t *Table, data map[string]any, c *Criteria) (*Statement, error) {
	if t == nil {
		return nil, errNilTable
	}
	c = c.Clone()
	var (
		fields []string
		params = make(map[string]any)
		i      int
	)
	for _, col := range t.OrderedColumns() {
		v, ok := data[col.Name]
		if !ok || b.d.rules.skipOnUpdate != nil && b.d.rules.skipOnUpdate(t, col) {
			continue
		}
		if e, ok := asExpr(v); ok {
			fields = append(fields, col.RawName+"="+e.SQL)
			maps.Copy(params, e.Params)
			continue
		}
		name := paramPrefix + strconv.Itoa(i)
		i++
		fields = append(fields, col.RawName+"=:"+name)
		params[name] = col.Typecast(v)
	}
	if len(fields) == 0 {
		return nil, schemakit.NewNoColumnsError(t.Name, "updated")
	}
	return b.write(t, "UPDATE "+t.RawName+" SET "+strings.Join(fields, ", "), params, c)
}

// UpdateCounter builds the UPDATE statement adding counters to the
// columns of the rows matched by the criteria. Negative values decrement.
func (b *CommandBuilder) UpdateCounter(t *Table, counters map[string]any, c *Criteria) (*Statement, error) {
	if t == nil {
		return nil, errNilTable
	}
	c = c.Clone()
	var fields []string
	for _, col := range t.OrderedColumns() {
		v, ok := counters[col.Name]
		if !ok {
			continue
		}
		f, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("schema: counter %q of table %q is not numeric: %v", col.Name, t.Name, v)
		}
		if f < 0 {
			fields = append(fields, col.RawName+"="+col.RawName+"-"+formatNumber(-f))
		} else {
			fields = append(fields, col.RawName+"="+col.RawName+"+"+formatNumber(f))
		}
	}
	if len(fields) == 0 {
		return nil, schemakit.NewNoColumnsError(t.Name, "updated")
	}
	return b.write(t, "UPDATE "+t.RawName+" SET "+strings.Join(fields, ", "), nil, c)
}

// Delete builds the DELETE statement of the rows matched by the criteria.
func (b *CommandBuilder) Delete(t *Table, c *Criteria) (*Statement, error) {
	if t == nil {
		return nil, errNilTable
	}
	return b.write(t, "DELETE FROM "+t.RawName, nil, c.Clone())
}

// write completes an UPDATE or DELETE statement with the join, condition,
// ordering and limit of the criteria.
func (b *CommandBuilder) write(t *Table, query string, params map[string]any, c *Criteria) (*Statement, error) {
	query = b.applyJoin(query, c.Join)
	query = applyClause(query, "WHERE", c.Condition)
	limit, offset := c.limit(), c.offset()
	switch {
	case !b.d.rules.writeLimit && (limit > 0 || offset > 0):
		return nil, &schemakit.UnsupportedError{Dialect: b.d.Name, Op: "limit", Reason: "UPDATE and DELETE cannot be limited"}
	case offset > 0:
		return nil, &schemakit.UnsupportedError{Dialect: b.d.Name, Op: "offset", Reason: "UPDATE and DELETE cannot skip rows"}
	case b.d.rules.writeLimit:
		query = applyClause(query, "ORDER BY", c.Order)
		if limit > 0 {
			query += " LIMIT " + strconv.Itoa(limit)
		}
	}
	if params == nil {
		params = make(map[string]any, len(c.Params))
	}
	maps.Copy(params, c.Params)
	return b.statement(query, params), nil
}

// ApplyLimit bounds a SELECT statement with the dialect's pagination.
func (b *CommandBuilder) ApplyLimit(query string, limit, offset int) (string, error) {
	return b.d.ApplyLimit(query, limit, offset)
}

// InCondition renders a condition matching any of values. With a single
// column values are scalars; with several columns every value is a
// map[string]any holding one value per column. prefix is prepended to
// column names verbatim, e.g. `"t".`.
func (b *CommandBuilder) InCondition(t *Table, columns []string, values []any, prefix string) (string, error) {
	if t == nil {
		return "", errNilTable
	}
	if len(values) == 0 {
		return "0=1", nil
	}
	switch len(columns) {
	case 0:
		return "", fmt.Errorf("schema: no column given for IN condition on table %q", t.Name)
	case 1:
		col, ok := t.Column(columns[0])
		if !ok {
			return "", unknownColumn(t, columns[0])
		}
		vs := make([]string, len(values))
		for i, v := range values {
			if m, ok := v.(map[string]any); ok {
				v = m[col.Name]
			}
			vs[i] = b.quoteValue(col.Typecast(v))
		}
		if len(vs) == 1 {
			if vs[0] == "NULL" {
				return prefix + col.RawName + " IS NULL", nil
			}
			return prefix + col.RawName + "=" + vs[0], nil
		}
		return prefix + col.RawName + " IN (" + strings.Join(vs, ", ") + ")", nil
	}
	tuples := make([]map[string]any, len(values))
	for i, v := range values {
		m, ok := v.(map[string]any)
		if !ok {
			return "", fmt.Errorf("schema: value %d of composite IN condition on table %q is %T, not a map", i, t.Name, v)
		}
		tuples[i] = m
	}
	return b.CompositeInCondition(t, columns, tuples, prefix)
}

// CompositeInCondition renders a condition matching any of the value
// tuples over several columns.
func (b *CommandBuilder) CompositeInCondition(t *Table, columns []string, values []map[string]any, prefix string) (string, error) {
	if t == nil {
		return "", errNilTable
	}
	if len(values) == 0 {
		return "0=1", nil
	}
	cols := make([]*Column, len(columns))
	for i, name := range columns {
		c, ok := t.Column(name)
		if !ok {
			return "", unknownColumn(t, name)
		}
		cols[i] = c
	}
	quoted := make([][]string, len(values))
	for i, tuple := range values {
		quoted[i] = make([]string, len(cols))
		for j, c := range cols {
			v, ok := tuple[c.Name]
			if !ok {
				return "", fmt.Errorf("schema: value for column %q is not supplied when querying table %q", c.Name, t.Name)
			}
			quoted[i][j] = b.quoteValue(c.Typecast(v))
		}
	}
	if len(values) == 1 {
		entries := make([]string, len(cols))
		for j, c := range cols {
			if quoted[0][j] == "NULL" {
				entries[j] = prefix + c.RawName + " IS NULL"
			} else {
				entries[j] = prefix + c.RawName + "=" + quoted[0][j]
			}
		}
		return strings.Join(entries, " AND "), nil
	}
	if b.d.rules.concatIn {
		keys := make([]string, len(cols))
		for j, c := range cols {
			keys[j] = prefix + c.RawName
		}
		vs := make([]string, len(quoted))
		for i, q := range quoted {
			vs[i] = strings.Join(q, "||','||")
		}
		return strings.Join(keys, "||','||") + " IN (" + strings.Join(vs, ", ") + ")", nil
	}
	ors := make([]string, len(quoted))
	for i, q := range quoted {
		ands := make([]string, len(cols))
		for j, c := range cols {
			ands[j] = prefix + c.RawName + "=" + q[j]
		}
		ors[i] = "(" + strings.Join(ands, " AND ") + ")"
	}
	return "(" + strings.Join(ors, " OR ") + ")", nil
}

// PkCondition renders a condition matching the rows with the given
// primary key values. Composite keys take map[string]any values.
func (b *CommandBuilder) PkCondition(t *Table, values []any, prefix string) (string, error) {
	if t == nil {
		return "", errNilTable
	}
	if len(t.PrimaryKey) == 0 {
		return "", fmt.Errorf("schema: table %q has no primary key", t.Name)
	}
	return b.InCondition(t, t.PrimaryKey, values, prefix)
}

// ColumnCondition returns a copy of c whose condition also requires each
// column to equal its value. Slice values render IN conditions and nil
// values IS NULL. Columns are qualified with the criteria alias.
func (b *CommandBuilder) ColumnCondition(t *Table, columns map[string]any, c *Criteria) (*Criteria, error) {
	if t == nil {
		return nil, errNilTable
	}
	c = c.Clone()
	for name := range columns {
		if !t.HasColumn(name) {
			return nil, unknownColumn(t, name)
		}
	}
	prefix := t.RawName + "."
	if c.Alias != "" {
		prefix = b.d.QuoteTableName(c.Alias) + "."
	}
	var (
		conds  []string
		params = c.Params
		next   int
	)
	for _, col := range t.OrderedColumns() {
		v, ok := columns[col.Name]
		if !ok {
			continue
		}
		switch v := v.(type) {
		case nil:
			conds = append(conds, prefix+col.RawName+" IS NULL")
		case []any:
			cond, err := b.InCondition(t, []string{col.Name}, v, prefix)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		default:
			cv := col.Typecast(v)
			if cv == nil {
				conds = append(conds, prefix+col.RawName+" IS NULL")
				continue
			}
			name := columnParamPrefix + strconv.Itoa(next)
			for _, taken := params[name]; taken; _, taken = params[name] {
				next++
				name = columnParamPrefix + strconv.Itoa(next)
			}
			next++
			conds = append(conds, prefix+col.RawName+"=:"+name)
			params[name] = cv
		}
	}
	if c.Condition != "" {
		conds = append(conds, c.Condition)
	}
	c.Condition = strings.Join(conds, " AND ")
	return c, nil
}

var keywordSepRe = regexp.MustCompile(`\s+`)

// SearchCondition renders a condition matching rows where any of the
// columns contains all of the whitespace separated keywords. It returns
// "" when keywords is blank.
func (b *CommandBuilder) SearchCondition(t *Table, columns []string, keywords, prefix string, caseSensitive bool) (string, error) {
	if t == nil {
		return "", errNilTable
	}
	var words []string
	for _, w := range keywordSepRe.Split(strings.TrimSpace(keywords), -1) {
		if w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return "", nil
	}
	escape := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	ors := make([]string, 0, len(columns))
	for _, name := range columns {
		col, ok := t.Column(name)
		if !ok {
			return "", unknownColumn(t, name)
		}
		ands := make([]string, len(words))
		for i, w := range words {
			pattern := sql.QuoteValue(b.d.Name, "%"+escape.Replace(w)+"%")
			switch {
			case caseSensitive:
				ands[i] = prefix + col.RawName + " LIKE " + pattern + b.d.rules.likeEscape
			case b.d.rules.caseInsensitiveLike != "":
				ands[i] = prefix + col.RawName + " " + b.d.rules.caseInsensitiveLike + " " + pattern + b.d.rules.likeEscape
			default:
				ands[i] = "LOWER(" + prefix + col.RawName + ") LIKE LOWER(" + pattern + ")" + b.d.rules.likeEscape
			}
		}
		ors = append(ors, strings.Join(ands, " AND "))
	}
	return "(" + strings.Join(ors, " OR ") + ")", nil
}

func (b *CommandBuilder) quoteValue(v any) string {
	return sql.QuoteValue(b.d.Name, v)
}

// applyJoin adds join clauses. MySQL places them before SET in updates
// and deletes through the joined form DELETE t FROM t JOIN.
func (b *CommandBuilder) applyJoin(query, join string) string {
	if join == "" {
		return query
	}
	if b.d.rules.joinBeforeSet {
		if strings.HasPrefix(query, "UPDATE ") {
			if i := strings.Index(query, " SET "); i >= 0 {
				return query[:i] + " " + join + query[i:]
			}
		}
		if table, ok := strings.CutPrefix(query, "DELETE FROM "); ok {
			return "DELETE " + table + " FROM " + table + " " + join
		}
	}
	return query + " " + join
}

func applyClause(query, keyword, clause string) string {
	if clause == "" {
		return query
	}
	return query + " " + keyword + " " + clause
}

func selectHead(distinct bool) string {
	if distinct {
		return "SELECT DISTINCT"
	}
	return "SELECT"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func unknownColumn(t *Table, name string) error {
	return fmt.Errorf("schema: table %q does not have a column named %q", t.Name, name)
}
