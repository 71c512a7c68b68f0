package schema

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

func newSQLite() *Dialect {
	q := quoter{open: "`", close: "`"}
	return &Dialect{
		Name:               dialect.SQLite,
		Quoter:             q,
		TypeExtractor:      sqliteTypes{},
		MetadataLoader:     sqliteLoader{q: q},
		DDLGenerator:       sqliteDDL{ddl{q: q, dialect: dialect.SQLite, types: sqliteColumnTypes}},
		PaginationStrategy: nativeLimit{offsetOnly: "LIMIT -1"},
		placeholder:        sqlparse.Question,
		rules: commandRules{
			pkDefault:    "NULL",
			missingValue: "NULL",
			concatIn:     true,
			likeEscape:   ` ESCAPE '\'`,
		},
	}
}

var sqliteColumnTypes = map[string]string{
	"pk":        "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
	"bigpk":     "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
	"string":    "varchar(255)",
	"text":      "text",
	"integer":   "integer",
	"bigint":    "integer",
	"float":     "float",
	"decimal":   "decimal",
	"datetime":  "datetime",
	"timestamp": "timestamp",
	"time":      "time",
	"date":      "date",
	"binary":    "blob",
	"boolean":   "tinyint(1)",
	"money":     "decimal(19,4)",
}

type sqliteTypes struct{}

func (sqliteTypes) InitColumn(c *Column, dbType string, def *string) {
	c.DBType = dbType
	c.Type = baseType(dbType)
	extractLimit(c, dbType)
	if def == nil {
		return
	}
	d := *def
	switch {
	case strings.EqualFold(dbType, "timestamp") && strings.EqualFold(d, "CURRENT_TIMESTAMP"):
	case strings.EqualFold(d, "NULL"):
	default:
		c.Default = c.Typecast(d)
		if s, ok := c.Default.(string); ok && c.Type == TypeString {
			c.Default = strings.Trim(s, `'"`)
		}
	}
}

type sqliteLoader struct {
	q quoter
}

func (sqliteLoader) DefaultSchema(context.Context, dialect.ExecQuerier) (string, error) {
	return "", nil
}

// ResolveTableNames accepts names qualified with an attached database,
// such as main.users, and quotes each segment.
func (l sqliteLoader) ResolveTableNames(t *Table, name, _ string) {
	parts := splitQualified(name)
	t.Name = parts[len(parts)-1]
	t.RawName = l.q.QuoteSimpleTableName(t.Name)
	if len(parts) >= 2 {
		t.Schema = parts[len(parts)-2]
		t.RawName = l.q.QuoteSimpleTableName(t.Schema) + "." + t.RawName
	}
}

// pragma renders a table valued pragma. The database qualifies the pragma
// name, not its argument.
func (l sqliteLoader) pragma(name string, t *Table) string {
	if t.Schema != "" {
		name = l.q.QuoteSimpleTableName(t.Schema) + "." + name
	}
	return "PRAGMA " + name + "(" + l.q.QuoteSimpleTableName(t.Name) + ")"
}

func (l sqliteLoader) sequenceTable(t *Table) string {
	if t.Schema != "" {
		return l.q.QuoteSimpleTableName(t.Schema) + ".sqlite_sequence"
	}
	return "sqlite_sequence"
}

func (l sqliteLoader) LoadTable(ctx context.Context, ex dialect.ExecQuerier, t *Table, _ string) (bool, error) {
	rows, err := sql.QueryAll(ctx, ex, l.pragma("table_info", t))
	if err != nil {
		return loadFailed(t, "columns", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	var (
		types = sqliteTypes{}
		pks   = make(map[string]int64)
	)
	for _, r := range rows {
		c := &Column{
			Name:         r.String("name"),
			AllowNull:    !r.Bool("notnull"),
			IsPrimaryKey: r.Int64("pk") != 0,
		}
		c.RawName = l.q.QuoteColumnName(c.Name)
		types.InitColumn(c, strings.ToLower(r.String("type")), rawDefault(r, "dflt_value"))
		t.AddColumn(c)
		if c.IsPrimaryKey {
			pks[c.Name] = r.Int64("pk")
		}
	}
	if len(pks) > 0 {
		names := make([]string, 0, len(pks))
		for name := range pks {
			names = append(names, name)
		}
		// pk holds the 1-based position of the column in the key.
		sort.Slice(names, func(i, j int) bool { return pks[names[i]] < pks[names[j]] })
		for _, name := range names {
			t.addPrimaryKey(name)
		}
	}
	if c, ok := t.SinglePrimaryKey(); ok && strings.HasPrefix(strings.ToLower(c.DBType), "int") {
		c.AutoIncrement = true
		t.setSequence("")
	}
	fks, err := sql.QueryAll(ctx, ex, l.pragma("foreign_key_list", t))
	if err != nil {
		return loadFailed(t, "foreign keys", err)
	}
	for _, r := range fks {
		from := r.String("from")
		t.ForeignKeys[from] = ForeignKey{RefTable: r.String("table"), RefColumn: r.String("to")}
		if c, ok := t.Column(from); ok {
			c.IsForeignKey = true
		}
	}
	return true, nil
}

func (sqliteLoader) FindTableNames(ctx context.Context, ex dialect.ExecQuerier, _, _ string) ([]string, error) {
	names, err := sql.QueryStrings(ctx, ex, "SELECT DISTINCT tbl_name FROM sqlite_master WHERE tbl_name<>'sqlite_sequence'")
	if err != nil {
		return nil, listFailed("table names", err)
	}
	return names, nil
}

func (sqliteLoader) CheckIntegrity(ctx context.Context, ex dialect.ExecQuerier, check bool, _, _ string) error {
	v := "0"
	if check {
		v = "1"
	}
	_, err := sql.Execute(ctx, ex, "PRAGMA foreign_keys="+v)
	return err
}

func (l sqliteLoader) ResetSequence(ctx context.Context, ex dialect.ExecQuerier, t *Table, value *int64) error {
	if !t.HasSequence() || len(t.PrimaryKey) == 0 {
		return nil
	}
	var seq int64
	if value != nil {
		seq = *value - 1
	} else {
		n, err := sql.QueryInt64(ctx, ex, "SELECT MAX("+l.q.QuoteColumnName(t.PrimaryKey[0])+") FROM "+t.RawName)
		if err != nil {
			return err
		}
		seq = n
	}
	_, err := sql.Execute(ctx, ex, "UPDATE "+l.sequenceTable(t)+" SET seq="+strconv.FormatInt(seq, 10)+" WHERE name="+quoteLiteral(t.Name))
	if sql.IsUndefinedTable(err) {
		// Tables without AUTOINCREMENT never create sqlite_sequence.
		return nil
	}
	return err
}

type sqliteDDL struct {
	ddl
}

func (d sqliteDDL) TruncateTable(table string) (string, error) {
	return "DELETE FROM " + d.q.QuoteTableName(table), nil
}

func (d sqliteDDL) RenameTable(table, newName string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " RENAME TO " + d.q.QuoteTableName(newName), nil
}

func (d sqliteDDL) DropIndex(name, _ string) (string, error) {
	return "DROP INDEX " + d.q.QuoteTableName(name), nil
}

func (d sqliteDDL) DropColumn(string, string) (string, error) {
	return "", d.unsupported("drop column")
}

func (d sqliteDDL) RenameColumn(context.Context, dialect.ExecQuerier, string, string, string) (string, error) {
	return "", d.unsupported("rename column")
}

func (d sqliteDDL) AlterColumn(string, string, string) (string, error) {
	return "", d.unsupported("alter column")
}

func (d sqliteDDL) AddForeignKey(ForeignKeyDef) (string, error) {
	return "", d.unsupported("add foreign key")
}

func (d sqliteDDL) DropForeignKey(string, string) (string, error) {
	return "", d.unsupported("drop foreign key")
}

func (d sqliteDDL) AddPrimaryKey(string, string, []string) (string, error) {
	return "", d.unsupported("add primary key")
}

func (d sqliteDDL) DropPrimaryKey(string, string) (string, error) {
	return "", d.unsupported("drop primary key")
}
