package schema

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/schemakit"
	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

func newOracle(username string) *Dialect {
	q := quoter{open: `"`, close: `"`}
	return &Dialect{
		Name:               dialect.Oracle,
		Quoter:             q,
		TypeExtractor:      oracleTypes{},
		MetadataLoader:     oracleLoader{q: q, username: username},
		DDLGenerator:       oracleDDL{ddl{q: q, dialect: dialect.Oracle, types: oracleColumnTypes}},
		PaginationStrategy: oracleLimit{},
		placeholder:        sqlparse.Colon,
		rules: commandRules{
			pkDefault:    "DEFAULT",
			missingValue: "NULL",
			insertAll:    true,
			returning:    true,
			likeEscape:   ` ESCAPE '\'`,
		},
	}
}

var oracleColumnTypes = map[string]string{
	"pk":        "NUMBER(10) NOT NULL PRIMARY KEY",
	"bigpk":     "NUMBER(20) NOT NULL PRIMARY KEY",
	"string":    "VARCHAR2(255)",
	"text":      "CLOB",
	"integer":   "NUMBER(10)",
	"bigint":    "NUMBER(20)",
	"float":     "NUMBER",
	"decimal":   "NUMBER",
	"datetime":  "TIMESTAMP",
	"timestamp": "TIMESTAMP",
	"time":      "TIMESTAMP",
	"date":      "DATE",
	"binary":    "BLOB",
	"boolean":   "NUMBER(1)",
	"money":     "NUMBER(19,4)",
}

var oracleParamsRe = regexp.MustCompile(`\((.*)\)`)

type oracleTypes struct{}

func (oracleTypes) InitColumn(c *Column, dbType string, def *string) {
	c.DBType = dbType
	t := strings.ToUpper(dbType)
	switch {
	case strings.Contains(t, "FLOAT"):
		c.Type = TypeDouble
	case strings.Contains(t, "NUMBER") || strings.Contains(t, "INTEGER"):
		c.Type = TypeDouble
		if m := oracleParamsRe.FindStringSubmatch(t); m != nil {
			c.Type = TypeInteger
			if v := strings.Split(m[1], ","); len(v) > 1 {
				if s, err := strconv.Atoi(strings.TrimSpace(v[1])); err == nil && s > 0 {
					c.Type = TypeDouble
				}
			}
		}
	case strings.Contains(t, "BLOB") || strings.Contains(t, "RAW"):
		c.Type = TypeBinary
	default:
		c.Type = TypeString
	}
	extractLimit(c, dbType)
	if def == nil {
		return
	}
	d := strings.TrimSpace(*def)
	lower := strings.ToLower(d)
	switch {
	case d == "" || strings.EqualFold(d, "NULL"):
	case strings.Contains(lower, "timestamp") || strings.Contains(lower, "sysdate"):
	case len(d) >= 2 && d[0] == '\'' && d[len(d)-1] == '\'':
		c.Default = c.Typecast(strings.ReplaceAll(d[1:len(d)-1], "''", "'"))
	default:
		c.Default = c.Typecast(d)
	}
}

type oracleLoader struct {
	q quoter
	// username is the connection user, the default schema when set.
	username string
}

func (l oracleLoader) DefaultSchema(ctx context.Context, ex dialect.ExecQuerier) (string, error) {
	if l.username != "" {
		return strings.ToUpper(l.username), nil
	}
	v, err := sql.QueryScalar(ctx, ex, "SELECT USER FROM DUAL")
	if err != nil {
		return "", listFailed("default schema", err)
	}
	return strings.ToUpper(toString(v)), nil
}

func (l oracleLoader) ResolveTableNames(t *Table, name, defaultSchema string) {
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

const oracleColumnsQuery = `SELECT a.column_name, a.data_type ||
	case
		when data_precision is not null
			then '(' || a.data_precision ||
				case when a.data_scale > 0 then ',' || a.data_scale else '' end
			|| ')'
		when data_type = 'DATE' then ''
		when data_type = 'NUMBER' then ''
		else '(' || to_char(a.data_length) || ')'
	end as data_type,
	a.nullable, a.data_default,
	(SELECT D.constraint_type
		FROM ALL_CONS_COLUMNS C
		inner join ALL_constraints D on D.OWNER = C.OWNER and D.constraint_name = C.constraint_name
		WHERE C.OWNER = B.OWNER
			and C.table_name = B.object_name
			and C.column_name = A.column_name
			and D.constraint_type = 'P') as Key,
	com.comments as column_comment
FROM ALL_TAB_COLUMNS A
inner join ALL_OBJECTS B ON b.owner = a.owner and ltrim(B.OBJECT_NAME) = ltrim(A.TABLE_NAME)
LEFT JOIN all_col_comments com ON (A.owner = com.owner AND A.table_name = com.table_name AND A.column_name = com.column_name)
WHERE a.owner = :schema
	and (b.object_type = 'TABLE' or b.object_type = 'VIEW')
	and b.object_name = :table
ORDER by a.column_id`

const oracleConstraintsQuery = `SELECT D.constraint_type as CONSTRAINT_TYPE, C.COLUMN_NAME, C.position, D.r_constraint_name,
	E.table_name as table_ref, f.column_name as column_ref, C.table_name
FROM ALL_CONS_COLUMNS C
inner join ALL_constraints D on D.OWNER = C.OWNER and D.constraint_name = C.constraint_name
left join ALL_constraints E on E.OWNER = D.r_OWNER and E.constraint_name = D.r_constraint_name
left join ALL_cons_columns F on F.OWNER = E.OWNER and F.constraint_name = E.constraint_name and F.position = c.position
WHERE C.OWNER = :schema
	and C.table_name = :table
	and D.constraint_type <> 'P'
order by d.constraint_name, c.position`

func (l oracleLoader) LoadTable(ctx context.Context, ex dialect.ExecQuerier, t *Table, _ string) (bool, error) {
	params := map[string]any{"schema": t.Schema, "table": t.Name}
	rows, err := queryRows(ctx, ex, sqlparse.Colon, oracleColumnsQuery, params)
	if err != nil {
		return loadFailed(t, "columns", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	types := oracleTypes{}
	for _, r := range rows {
		c := &Column{
			Name:         r.String("COLUMN_NAME"),
			AllowNull:    r.String("NULLABLE") == "Y",
			IsPrimaryKey: strings.Contains(r.String("KEY"), "P"),
			Comment:      r.String("COLUMN_COMMENT"),
		}
		c.RawName = l.q.QuoteColumnName(c.Name)
		types.InitColumn(c, r.String("DATA_TYPE"), rawDefault(r, "DATA_DEFAULT"))
		t.AddColumn(c)
		if c.IsPrimaryKey {
			t.addPrimaryKey(c.Name)
			c.AutoIncrement = true
			t.setSequence("")
		}
	}
	cons, err := queryRows(ctx, ex, sqlparse.Colon, oracleConstraintsQuery, params)
	if err != nil {
		return loadFailed(t, "foreign keys", err)
	}
	for _, r := range cons {
		if r.String("CONSTRAINT_TYPE") != "R" {
			continue
		}
		name := r.String("COLUMN_NAME")
		t.ForeignKeys[name] = ForeignKey{RefTable: r.String("TABLE_REF"), RefColumn: r.String("COLUMN_REF")}
		if c, ok := t.Column(name); ok {
			c.IsForeignKey = true
		}
	}
	return true, nil
}

func (l oracleLoader) FindTableNames(ctx context.Context, ex dialect.ExecQuerier, schema, defaultSchema string) ([]string, error) {
	var (
		rows []sql.Row
		err  error
	)
	if schema == "" {
		rows, err = sql.QueryAll(ctx, ex, "SELECT table_name FROM user_tables")
	} else {
		rows, err = queryRows(ctx, ex, sqlparse.Colon,
			"SELECT object_name as table_name, owner as table_schema FROM all_objects WHERE object_type = 'TABLE' AND owner=:schema",
			map[string]any{"schema": schema})
	}
	if err != nil {
		return nil, listFailed("table names", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, qualify(schema, defaultSchema, r.String("TABLE_NAME")))
	}
	return names, nil
}

func (l oracleLoader) CheckIntegrity(ctx context.Context, ex dialect.ExecQuerier, check bool, schema, defaultSchema string) error {
	mode := "DISABLE"
	if check {
		mode = "ENABLE"
	}
	if schema == "" {
		schema = defaultSchema
	}
	names, err := l.FindTableNames(ctx, ex, schema, defaultSchema)
	if err != nil {
		return err
	}
	for _, name := range names {
		table := lastSegment(name)
		cons, err := queryRows(ctx, ex, sqlparse.Colon,
			"SELECT CONSTRAINT_NAME FROM ALL_CONSTRAINTS WHERE TABLE_NAME=:t AND OWNER=:o AND CONSTRAINT_TYPE='R'",
			map[string]any{"t": table, "o": schema})
		if err != nil {
			return listFailed("constraints", err)
		}
		for _, r := range cons {
			stmt := "ALTER TABLE " + l.q.QuoteSimpleTableName(schema) + "." + l.q.QuoteSimpleTableName(table) +
				" " + mode + " CONSTRAINT " + l.q.QuoteSimpleColumnName(r.String("CONSTRAINT_NAME"))
			if _, err := sql.Execute(ctx, ex, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l oracleLoader) ResetSequence(ctx context.Context, ex dialect.ExecQuerier, t *Table, value *int64) error {
	if !t.HasSequence() || len(t.PrimaryKey) == 0 {
		return nil
	}
	var next int64
	if value != nil {
		next = *value
	} else {
		n, err := sql.QueryInt64(ctx, ex, "SELECT MAX("+l.q.QuoteColumnName(t.PrimaryKey[0])+") FROM "+t.RawName)
		if err != nil {
			return err
		}
		next = n + 1
	}
	seq := l.q.QuoteSimpleTableName(t.Name + "_SEQ")
	if _, err := sql.Execute(ctx, ex, "DROP SEQUENCE "+seq); err != nil && !sql.IsUndefinedObject(err) {
		return err
	}
	_, err := sql.Execute(ctx, ex, "CREATE SEQUENCE "+seq+" START WITH "+strconv.FormatInt(next, 10)+" INCREMENT BY 1 NOMAXVALUE NOCACHE")
	return err
}

type oracleDDL struct {
	ddl
}

func (d oracleDDL) RenameTable(table, newName string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " RENAME TO " + d.q.QuoteTableName(newName), nil
}

func (d oracleDDL) AlterColumn(table, column, typ string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " MODIFY " + d.q.QuoteColumnName(column) + " " + d.ColumnType(typ), nil
}

func (d oracleDDL) AddForeignKey(fk ForeignKeyDef) (string, error) {
	if fk.OnUpdate != "" {
		return "", &schemakit.UnsupportedError{Dialect: dialect.Oracle, Op: "ON UPDATE", Reason: "foreign keys have no update action"}
	}
	return d.ddl.AddForeignKey(fk)
}

func (d oracleDDL) DropIndex(name, _ string) (string, error) {
	return "DROP INDEX " + d.q.QuoteTableName(name), nil
}
