package schema

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

// postgresDefaultSchema is the schema unqualified names resolve to.
const postgresDefaultSchema = "public"

func newPostgres() *Dialect {
	q := quoter{open: `"`, close: `"`}
	return &Dialect{
		Name:               dialect.Postgres,
		Quoter:             q,
		TypeExtractor:      postgresTypes{},
		MetadataLoader:     postgresLoader{q: q},
		DDLGenerator:       postgresDDL{ddl{q: q, dialect: dialect.Postgres, types: postgresColumnTypes}},
		PaginationStrategy: nativeLimit{},
		placeholder:        sqlparse.Dollar,
		rules: commandRules{
			pkDefault:           "DEFAULT",
			missingValue:        "DEFAULT",
			caseInsensitiveLike: "ILIKE",
		},
	}
}

var postgresColumnTypes = map[string]string{
	"pk":        "serial NOT NULL PRIMARY KEY",
	"bigpk":     "bigserial NOT NULL PRIMARY KEY",
	"string":    "character varying (255)",
	"text":      "text",
	"integer":   "integer",
	"bigint":    "bigint",
	"float":     "double precision",
	"decimal":   "numeric",
	"datetime":  "timestamp",
	"timestamp": "timestamp",
	"time":      "time",
	"date":      "date",
	"binary":    "bytea",
	"boolean":   "boolean",
	"money":     "decimal(19,4)",
}

var (
	pgDoubleRe  = regexp.MustCompile(`(real|float|double)`)
	pgIntegerRe = regexp.MustCompile(`(integer|oid|serial|smallint)`)
	pgQuotedRe  = regexp.MustCompile(`^'(.*)'::`)
	pgNumberRe  = regexp.MustCompile(`^\(?(-?\d+(\.\d*)?)\)?(::.*)?$`)
	pgNextvalRe = regexp.MustCompile(`(?i)nextval\([^']*'([^']+)'[^\)]*\)`)
	pgFKRe      = regexp.MustCompile(`(?i)FOREIGN\s+KEY\s+\(([^\)]+)\)\s+REFERENCES\s+([^\(]+)\(([^\)]+)\)`)
)

type postgresTypes struct{}

func (postgresTypes) InitColumn(c *Column, dbType string, def *string) {
	c.DBType = dbType
	t := strings.ToLower(dbType)
	switch {
	case strings.Contains(t, "[") || strings.Contains(t, "char") || strings.Contains(t, "text"):
		c.Type = TypeString
	case strings.Contains(t, "bool"):
		c.Type = TypeBoolean
	case pgDoubleRe.MatchString(t):
		c.Type = TypeDouble
	case pgIntegerRe.MatchString(t):
		c.Type = TypeInteger
	case strings.Contains(t, "bytea"):
		c.Type = TypeBinary
	default:
		c.Type = TypeString
	}
	extractLimit(c, dbType)
	if def == nil {
		return
	}
	d := strings.TrimSpace(*def)
	switch {
	case d == "true":
		c.Default = true
	case d == "false":
		c.Default = false
	case strings.HasPrefix(strings.ToLower(d), "nextval"):
	default:
		if m := pgQuotedRe.FindStringSubmatch(d); m != nil {
			c.Default = c.Typecast(strings.ReplaceAll(m[1], "''", "'"))
		} else if m := pgNumberRe.FindStringSubmatch(d); m != nil {
			c.Default = c.Typecast(m[1])
		}
	}
}

type postgresLoader struct {
	q quoter
}

func (postgresLoader) DefaultSchema(context.Context, dialect.ExecQuerier) (string, error) {
	return postgresDefaultSchema, nil
}

func (l postgresLoader) ResolveTableNames(t *Table, name, defaultSchema string) {
	if defaultSchema == "" {
		defaultSchema = postgresDefaultSchema
	}
	parts := splitQualified(name)
	if len(parts) >= 2 {
		t.Schema, t.Name = parts[len(parts)-2], parts[len(parts)-1]
	} else {
		t.Schema, t.Name = defaultSchema, parts[0]
	}
	t.RawName = l.q.QuoteSimpleTableName(t.Name)
	if t.Schema != defaultSchema {
		t.RawName = l.q.QuoteSimpleTableName(t.Schema) + "." + t.RawName
	}
}

const pgColumnsQuery = `SELECT a.attname, LOWER(format_type(a.atttypid, a.atttypmod)) AS type,
	pg_catalog.pg_get_expr(d.adbin, d.adrelid) AS adsrc, a.attnotnull, a.atthasdef,
	pg_catalog.col_description(a.attrelid, a.attnum) AS comment
FROM pg_attribute a LEFT JOIN pg_attrdef d ON a.attrelid = d.adrelid AND a.attnum = d.adnum
WHERE a.attnum > 0 AND NOT a.attisdropped
	AND a.attrelid = (SELECT oid FROM pg_catalog.pg_class WHERE relname=:table
		AND relnamespace = (SELECT oid FROM pg_catalog.pg_namespace WHERE nspname=:schema))
ORDER BY a.attnum`

const pgConstraintsQuery = `SELECT contype, condef, indkey FROM (
	SELECT c.contype, pg_catalog.pg_get_constraintdef(c.oid) AS condef, NULL AS indkey, c.conrelid AS relid
	FROM pg_catalog.pg_constraint c WHERE c.contype = 'f'
	UNION ALL
	SELECT 'p', NULL, i.indkey::text, i.indrelid
	FROM pg_catalog.pg_index i WHERE i.indisprimary
) AS sub
WHERE relid = (SELECT oid FROM pg_catalog.pg_class WHERE relname=:table
	AND relnamespace = (SELECT oid FROM pg_catalog.pg_namespace WHERE nspname=:schema))`

const pgPrimaryKeyQuery = `SELECT attnum, attname FROM pg_catalog.pg_attribute WHERE
	attrelid = (SELECT oid FROM pg_catalog.pg_class WHERE relname=:table
		AND relnamespace = (SELECT oid FROM pg_catalog.pg_namespace WHERE nspname=:schema))
	AND attnum = ANY(string_to_array(:indkey, ' ')::int2[])`

func (l postgresLoader) LoadTable(ctx context.Context, ex dialect.ExecQuerier, t *Table, defaultSchema string) (bool, error) {
	params := map[string]any{"table": t.Name, "schema": t.Schema}
	rows, err := queryRows(ctx, ex, sqlparse.Dollar, pgColumnsQuery, params)
	if err != nil {
		return loadFailed(t, "columns", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	var (
		types     = postgresTypes{}
		sequences = make(map[string]string)
	)
	for _, r := range rows {
		c := &Column{
			Name:      r.String("attname"),
			AllowNull: !r.Bool("attnotnull"),
			Comment:   r.String("comment"),
		}
		c.RawName = l.q.QuoteColumnName(c.Name)
		var def *string
		if r.Bool("atthasdef") {
			def = rawDefault(r, "adsrc")
		}
		types.InitColumn(c, r.String("type"), def)
		if def != nil {
			if m := pgNextvalRe.FindStringSubmatch(*def); m != nil && strings.HasPrefix(strings.ToLower(*def), "nextval") {
				seq := strings.ReplaceAll(m[1], `"`, "")
				if !strings.Contains(seq, ".") && t.Schema != "" && t.Schema != defaultSchema && t.Schema != postgresDefaultSchema {
					seq = t.Schema + "." + seq
				}
				sequences[c.Name] = seq
				c.AutoIncrement = true
			}
		}
		t.AddColumn(c)
	}
	cons, err := queryRows(ctx, ex, sqlparse.Dollar, pgConstraintsQuery, params)
	if err != nil {
		return loadFailed(t, "constraints", err)
	}
	for _, r := range cons {
		switch r.String("contype") {
		case "p":
			if err := l.loadPrimaryKey(ctx, ex, t, r.String("indkey")); err != nil {
				return loadFailed(t, "primary key", err)
			}
		case "f":
			l.parseForeignKey(t, r.String("condef"))
		}
	}
	for _, pk := range t.PrimaryKey {
		if seq, ok := sequences[pk]; ok {
			t.setSequence(seq)
		}
	}
	return true, nil
}

// loadPrimaryKey resolves the attribute numbers of the primary key index,
// keeping their key order.
func (l postgresLoader) loadPrimaryKey(ctx context.Context, ex dialect.ExecQuerier, t *Table, indkey string) error {
	indkey = strings.Join(strings.Fields(indkey), " ")
	rows, err := queryRows(ctx, ex, sqlparse.Dollar, pgPrimaryKeyQuery, map[string]any{
		"table": t.Name, "schema": t.Schema, "indkey": indkey,
	})
	if err != nil {
		return err
	}
	names := make(map[int64]string, len(rows))
	for _, r := range rows {
		names[r.Int64("attnum")] = r.String("attname")
	}
	for _, f := range strings.Fields(indkey) {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		if c, ok := t.Column(names[n]); ok {
			c.IsPrimaryKey = true
			t.addPrimaryKey(c.Name)
		}
	}
	return nil
}

func (postgresLoader) parseForeignKey(t *Table, def string) {
	m := pgFKRe.FindStringSubmatch(strings.ReplaceAll(def, `"`, ""))
	if m == nil {
		return
	}
	keys := strings.Split(m[1], ",")
	refs := strings.Split(m[3], ",")
	table := strings.TrimSpace(m[2])
	for i, k := range keys {
		if i >= len(refs) {
			break
		}
		k = strings.TrimSpace(k)
		t.ForeignKeys[k] = ForeignKey{RefTable: table, RefColumn: strings.TrimSpace(refs[i])}
		if c, ok := t.Column(k); ok {
			c.IsForeignKey = true
		}
	}
}

func (postgresLoader) FindTableNames(ctx context.Context, ex dialect.ExecQuerier, schema, defaultSchema string) ([]string, error) {
	if defaultSchema == "" {
		defaultSchema = postgresDefaultSchema
	}
	if schema == "" {
		schema = defaultSchema
	}
	rows, err := queryRows(ctx, ex, sqlparse.Dollar, `SELECT table_name, table_schema FROM information_schema.tables
WHERE table_schema=:schema AND table_type='BASE TABLE'`, map[string]any{"schema": schema})
	if err != nil {
		return nil, listFailed("table names", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, qualify(schema, defaultSchema, r.String("table_name")))
	}
	return names, nil
}

func (l postgresLoader) CheckIntegrity(ctx context.Context, ex dialect.ExecQuerier, check bool, schema, defaultSchema string) error {
	mode := "DISABLE"
	if check {
		mode = "ENABLE"
	}
	names, err := l.FindTableNames(ctx, ex, schema, defaultSchema)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := sql.Execute(ctx, ex, "ALTER TABLE "+l.q.QuoteTableName(name)+" "+mode+" TRIGGER ALL"); err != nil {
			return err
		}
	}
	return nil
}

func (l postgresLoader) ResetSequence(ctx context.Context, ex dialect.ExecQuerier, t *Table, value *int64) error {
	if t.SequenceName == nil || *t.SequenceName == "" || len(t.PrimaryKey) == 0 {
		return nil
	}
	seq := l.q.QuoteTableName(*t.SequenceName)
	v := "(SELECT COALESCE(MAX(" + l.q.QuoteColumnName(t.PrimaryKey[0]) + "),0) FROM " + t.RawName + ")+1"
	if value != nil {
		v = strconv.FormatInt(*value, 10)
	}
	_, err := sql.Execute(ctx, ex, "SELECT SETVAL("+quoteLiteral(seq)+", "+v+", false)")
	return err
}

type postgresDDL struct {
	ddl
}

func (d postgresDDL) RenameTable(table, newName string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " RENAME TO " + d.q.QuoteTableName(newName), nil
}

func (d postgresDDL) AddColumn(table, column, typ string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " ADD COLUMN " + d.q.QuoteColumnName(column) + " " + d.ColumnType(typ), nil
}

func (d postgresDDL) AlterColumn(table, column, typ string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " ALTER COLUMN " + d.q.QuoteColumnName(column) + " TYPE " + d.ColumnType(typ), nil
}

func (d postgresDDL) DropIndex(name, _ string) (string, error) {
	return "DROP INDEX " + d.q.QuoteTableName(name), nil
}
