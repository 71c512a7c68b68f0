package schema

import (
	"context"
	"strconv"
	"strings"

	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

// mssqlDefaultSchema is the schema unqualified names resolve to.
const mssqlDefaultSchema = "dbo"

func newMSSQL() *Dialect {
	q := quoter{open: "[", close: "]", fold: true}
	return &Dialect{
		Name:               dialect.MSSQL,
		Quoter:             q,
		TypeExtractor:      mssqlTypes{},
		MetadataLoader:     mssqlLoader{q: q},
		DDLGenerator:       mssqlDDL{ddl{q: q, dialect: dialect.MSSQL, types: mssqlColumnTypes}},
		PaginationStrategy: mssqlLimit{},
		placeholder:        sqlparse.AtP,
		rules: commandRules{
			emptyInsert: func(t *Table) string {
				return "INSERT INTO " + t.RawName + " DEFAULT VALUES"
			},
			pkDefault:      "DEFAULT",
			missingValue:   "NULL",
			orderForOffset: true,
			skipOnUpdate: func(t *Table, c *Column) bool {
				return t.HasSequence() && c.IsPrimaryKey || strings.EqualFold(c.DBType, "timestamp")
			},
			likeEscape: ` ESCAPE '\'`,
		},
	}
}

var mssqlColumnTypes = map[string]string{
	"pk":        "int IDENTITY PRIMARY KEY",
	"bigpk":     "bigint IDENTITY PRIMARY KEY",
	"string":    "varchar(255)",
	"text":      "text",
	"integer":   "int",
	"bigint":    "bigint",
	"float":     "float",
	"decimal":   "decimal",
	"datetime":  "datetime",
	"timestamp": "timestamp",
	"time":      "time",
	"date":      "date",
	"binary":    "binary",
	"boolean":   "bit",
	"money":     "decimal(19,4)",
}

type mssqlTypes struct{}

// InitColumn does not parse limits; the loader reads them from
// INFORMATION_SCHEMA.
func (mssqlTypes) InitColumn(c *Column, dbType string, def *string) {
	c.DBType = dbType
	c.BoolAsInt = true
	t := strings.ToLower(dbType)
	switch {
	case strings.Contains(t, "float") || strings.Contains(t, "real"):
		c.Type = TypeDouble
	case !strings.Contains(t, "bigint") && strings.Contains(t, "int"):
		c.Type = TypeInteger
	case strings.Contains(t, "bit"):
		c.Type = TypeBoolean
	case strings.Contains(t, "binary") || t == "image":
		c.Type = TypeBinary
	default:
		c.Type = TypeString
	}
	if def == nil || t == "timestamp" {
		return
	}
	d := strings.TrimSpace(*def)
	for len(d) >= 2 && d[0] == '(' && d[len(d)-1] == ')' {
		d = strings.TrimSpace(d[1 : len(d)-1])
	}
	switch {
	case strings.EqualFold(d, "NULL"):
	case len(d) >= 2 && d[0] == '\'' && d[len(d)-1] == '\'':
		c.Default = c.Typecast(strings.ReplaceAll(d[1:len(d)-1], "''", "'"))
	case len(d) >= 3 && (d[0] == 'N' || d[0] == 'n') && d[1] == '\'' && d[len(d)-1] == '\'':
		c.Default = c.Typecast(strings.ReplaceAll(d[2:len(d)-1], "''", "'"))
	case strings.Contains(d, "("):
		// function call such as getdate()
	default:
		c.Default = c.Typecast(d)
	}
}

type mssqlLoader struct {
	q quoter
}

func (mssqlLoader) DefaultSchema(context.Context, dialect.ExecQuerier) (string, error) {
	return mssqlDefaultSchema, nil
}

func (l mssqlLoader) ResolveTableNames(t *Table, name, defaultSchema string) {
	if defaultSchema == "" {
		defaultSchema = mssqlDefaultSchema
	}
	parts := splitQualified(name)
	switch len(parts) {
	case 1:
		t.Schema, t.Name = defaultSchema, parts[0]
	case 2:
		t.Schema, t.Name = parts[0], parts[1]
	default:
		n := len(parts)
		t.Catalog, t.Schema, t.Name = parts[n-3], parts[n-2], parts[n-1]
	}
	t.RawName = l.q.QuoteSimpleTableName(t.Name)
	if t.Schema != defaultSchema || t.Catalog != "" {
		t.RawName = l.q.QuoteSimpleTableName(t.Schema) + "." + t.RawName
	}
	if t.Catalog != "" {
		t.RawName = l.q.QuoteSimpleTableName(t.Catalog) + "." + t.RawName
	}
}

// infoSchema returns the quoted INFORMATION_SCHEMA view of the table's
// catalog.
func (l mssqlLoader) infoSchema(t *Table, view string) string {
	name := "[INFORMATION_SCHEMA].[" + view + "]"
	if t.Catalog != "" {
		name = l.q.QuoteSimpleTableName(t.Catalog) + "." + name
	}
	return name
}

func (l mssqlLoader) LoadTable(ctx context.Context, ex dialect.ExecQuerier, t *Table, _ string) (bool, error) {
	params := map[string]any{"table": t.Name, "schema": t.Schema}
	pks, err := queryRows(ctx, ex, sqlparse.AtP, `SELECT k.column_name field_name
	FROM `+l.infoSchema(t, "KEY_COLUMN_USAGE")+` k
	LEFT JOIN `+l.infoSchema(t, "TABLE_CONSTRAINTS")+` c
	  ON k.table_name = c.table_name
	 AND k.constraint_name = c.constraint_name
	WHERE c.constraint_type ='PRIMARY KEY'
		AND k.table_name = :table
		AND k.table_schema = :schema
	ORDER BY k.ordinal_position`, params)
	if err != nil {
		return loadFailed(t, "primary key", err)
	}
	for _, r := range pks {
		t.addPrimaryKey(r.String("field_name"))
	}
	fks, err := queryRows(ctx, ex, sqlparse.AtP, `SELECT
	 KCU1.COLUMN_NAME AS FK_COLUMN_NAME
	, KCU2.TABLE_NAME AS UQ_TABLE_NAME
	, KCU2.COLUMN_NAME AS UQ_COLUMN_NAME
FROM `+l.infoSchema(t, "REFERENTIAL_CONSTRAINTS")+` RC
JOIN `+l.infoSchema(t, "KEY_COLUMN_USAGE")+` KCU1
	ON KCU1.CONSTRAINT_CATALOG = RC.CONSTRAINT_CATALOG
	AND KCU1.CONSTRAINT_SCHEMA = RC.CONSTRAINT_SCHEMA
	AND KCU1.CONSTRAINT_NAME = RC.CONSTRAINT_NAME
JOIN `+l.infoSchema(t, "KEY_COLUMN_USAGE")+` KCU2
	ON KCU2.CONSTRAINT_CATALOG = RC.UNIQUE_CONSTRAINT_CATALOG
	AND KCU2.CONSTRAINT_SCHEMA = RC.UNIQUE_CONSTRAINT_SCHEMA
	AND KCU2.CONSTRAINT_NAME = RC.UNIQUE_CONSTRAINT_NAME
	AND KCU2.ORDINAL_POSITION = KCU1.ORDINAL_POSITION
WHERE KCU1.TABLE_NAME = :table AND KCU1.TABLE_SCHEMA = :schema`, params)
	if err != nil {
		return loadFailed(t, "foreign keys", err)
	}
	for _, r := range fks {
		t.ForeignKeys[r.String("FK_COLUMN_NAME")] = ForeignKey{
			RefTable:  r.String("UQ_TABLE_NAME"),
			RefColumn: r.String("UQ_COLUMN_NAME"),
		}
	}
	where := "t1.TABLE_NAME = :table AND t1.TABLE_SCHEMA = :schema"
	if t.Catalog != "" {
		where += " AND t1.TABLE_CATALOG = :catalog"
		params["catalog"] = t.Catalog
	}
	cols, err := queryRows(ctx, ex, sqlparse.AtP, `SELECT t1.*, columnproperty(object_id(t1.table_schema+'.'+t1.table_name), t1.column_name, 'IsIdentity') AS IsIdentity,
	CONVERT(VARCHAR, t2.value) AS Comment
FROM `+l.infoSchema(t, "COLUMNS")+` AS t1
LEFT OUTER JOIN sys.extended_properties AS t2 ON t1.ORDINAL_POSITION = t2.minor_id
	AND object_name(t2.major_id) = t1.TABLE_NAME AND t2.class = 1
	AND t2.class_desc = 'OBJECT_OR_COLUMN' AND t2.name = 'MS_Description'
WHERE `+where+`
ORDER BY t1.ORDINAL_POSITION`, params)
	if err != nil {
		return loadFailed(t, "columns", err)
	}
	if len(cols) == 0 {
		return false, nil
	}
	types := mssqlTypes{}
	for _, r := range cols {
		c := &Column{
			Name:          r.String("COLUMN_NAME"),
			AllowNull:     r.String("IS_NULLABLE") == "YES",
			AutoIncrement: r.Int64("IsIdentity") == 1,
			Comment:       r.String("Comment"),
		}
		c.RawName = l.q.QuoteColumnName(c.Name)
		types.InitColumn(c, r.String("DATA_TYPE"), rawDefault(r, "COLUMN_DEFAULT"))
		switch dt := strings.ToLower(r.String("DATA_TYPE")); {
		case r["NUMERIC_PRECISION_RADIX"] != nil:
			if _, ok := r.NullString("NUMERIC_PRECISION"); ok {
				c.Size, c.Precision = intp(int(r.Int64("NUMERIC_PRECISION"))), intp(int(r.Int64("NUMERIC_PRECISION")))
			}
			if _, ok := r.NullString("NUMERIC_SCALE"); ok {
				c.Scale = intp(int(r.Int64("NUMERIC_SCALE")))
			}
		case dt == "image" || dt == "text":
		default:
			if _, ok := r.NullString("CHARACTER_MAXIMUM_LENGTH"); ok {
				n := int(r.Int64("CHARACTER_MAXIMUM_LENGTH"))
				c.Size, c.Precision = intp(n), intp(n)
			}
		}
		for _, pk := range t.PrimaryKey {
			if strings.EqualFold(pk, c.Name) {
				c.IsPrimaryKey = true
			}
		}
		_, c.IsForeignKey = t.ForeignKeys[c.Name]
		t.AddColumn(c)
		if c.AutoIncrement {
			t.setSequence(t.Name)
		}
	}
	return true, nil
}

func (l mssqlLoader) findTableNames(ctx context.Context, ex dialect.ExecQuerier, schema, defaultSchema string, views bool) ([]string, error) {
	if defaultSchema == "" {
		defaultSchema = mssqlDefaultSchema
	}
	if schema == "" {
		schema = defaultSchema
	}
	kinds := "'BASE TABLE'"
	if views {
		kinds += ", 'VIEW'"
	}
	rows, err := queryRows(ctx, ex, sqlparse.AtP, `SELECT TABLE_NAME, TABLE_SCHEMA FROM [INFORMATION_SCHEMA].[TABLES]
WHERE TABLE_SCHEMA = :schema AND TABLE_TYPE IN (`+kinds+`)`, map[string]any{"schema": schema})
	if err != nil {
		return nil, listFailed("table names", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, qualify(schema, defaultSchema, r.String("TABLE_NAME")))
	}
	return names, nil
}

func (l mssqlLoader) FindTableNames(ctx context.Context, ex dialect.ExecQuerier, schema, defaultSchema string) ([]string, error) {
	return l.findTableNames(ctx, ex, schema, defaultSchema, true)
}

func (l mssqlLoader) CheckIntegrity(ctx context.Context, ex dialect.ExecQuerier, check bool, schema, defaultSchema string) error {
	mode := "NOCHECK"
	if check {
		mode = "CHECK"
	}
	names, err := l.findTableNames(ctx, ex, schema, defaultSchema, false)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := sql.Execute(ctx, ex, "ALTER TABLE "+l.q.QuoteTableName(name)+" "+mode+" CONSTRAINT ALL"); err != nil {
			return err
		}
	}
	return nil
}

func (l mssqlLoader) ResetSequence(ctx context.Context, ex dialect.ExecQuerier, t *Table, value *int64) error {
	if !t.HasSequence() || len(t.PrimaryKey) == 0 {
		return nil
	}
	var seed int64
	if value != nil {
		seed = *value - 1
	} else {
		n, err := sql.QueryInt64(ctx, ex, "SELECT MAX("+l.q.QuoteColumnName(t.PrimaryKey[0])+") FROM "+t.RawName)
		if err != nil {
			return err
		}
		seed = n
	}
	name := strings.NewReplacer("[", "", "]", "").Replace(t.RawName)
	_, err := sql.Execute(ctx, ex, "DBCC CHECKIDENT ("+quoteLiteral(name)+", RESEED, "+strconv.FormatInt(seed, 10)+")")
	return err
}

type mssqlDDL struct {
	ddl
}

func (d mssqlDDL) RenameTable(table, newName string) (string, error) {
	return "sp_rename " + quoteLiteral(table) + ", " + quoteLiteral(newName), nil
}

func (d mssqlDDL) RenameColumn(_ context.Context, _ dialect.ExecQuerier, table, name, newName string) (string, error) {
	return "sp_rename " + quoteLiteral(table+"."+name) + ", " + quoteLiteral(newName) + ", 'COLUMN'", nil
}

func (d mssqlDDL) AlterColumn(table, column, typ string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " ALTER COLUMN " + d.q.QuoteColumnName(column) + " " + d.ColumnType(typ), nil
}
