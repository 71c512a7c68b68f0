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

func newMySQL() *Dialect {
	q := quoter{open: "`", close: "`", fold: true}
	return &Dialect{
		Name:               dialect.MySQL,
		Quoter:             q,
		TypeExtractor:      mysqlTypes{},
		MetadataLoader:     mysqlLoader{q: q},
		DDLGenerator:       mysqlDDL{ddl{q: q, dialect: dialect.MySQL, types: mysqlColumnTypes}},
		PaginationStrategy: nativeLimit{offsetOnly: "LIMIT 18446744073709551615"},
		placeholder:        sqlparse.Question,
		lexer:              []sqlparse.Option{sqlparse.BackslashEscapes()},
		rules: commandRules{
			pkDefault:     "NULL",
			missingValue:  "NULL",
			joinBeforeSet: true,
			writeLimit:    true,
		},
	}
}

var mysqlColumnTypes = map[string]string{
	"pk":        "int(11) NOT NULL AUTO_INCREMENT PRIMARY KEY",
	"bigpk":     "bigint(20) NOT NULL AUTO_INCREMENT PRIMARY KEY",
	"string":    "varchar(255)",
	"text":      "text",
	"integer":   "int(11)",
	"bigint":    "bigint(20)",
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

var (
	mysqlIntRe  = regexp.MustCompile(`(bit|tinyint|smallint|mediumint)`)
	mysqlEnumRe = regexp.MustCompile(`\((['"])(.*)(['"])\)`)
	mysqlFKRe   = regexp.MustCompile("(?im)FOREIGN KEY\\s+\\(([^\\)]+)\\)\\s+REFERENCES\\s+([^\\(^\\s]+)\\s*\\(([^\\)]+)\\)")
	mysqlDefRe  = regexp.MustCompile("(?m)^\\s*`(.*?)`\\s+(.*?),?$")
)

type mysqlTypes struct{}

func (mysqlTypes) InitColumn(c *Column, dbType string, def *string) {
	c.DBType = dbType
	t := strings.ToLower(dbType)
	switch {
	case strings.HasPrefix(t, "enum"):
		c.Type = TypeString
	case strings.Contains(t, "float") || strings.Contains(t, "double"):
		c.Type = TypeDouble
	case strings.Contains(t, "bool"):
		c.Type = TypeBoolean
	case strings.HasPrefix(t, "int") && !strings.Contains(t, "unsigned") || mysqlIntRe.MatchString(t):
		c.Type = TypeInteger
	case strings.Contains(t, "blob") || strings.Contains(t, "binary"):
		c.Type = TypeBinary
	default:
		c.Type = TypeString
	}
	if m := mysqlEnumRe.FindStringSubmatch(dbType); strings.HasPrefix(t, "enum") && m != nil {
		size := 0
		for _, v := range strings.Split(m[2], m[1]+","+m[1]) {
			size = max(size, len(v))
		}
		c.Size, c.Precision = intp(size), intp(size)
	} else {
		extractLimit(c, dbType)
	}
	if def == nil {
		return
	}
	switch {
	case strings.HasPrefix(t, "bit"):
		if n, ok := decodeBitLiteral(*def); ok {
			c.Default = n
		} else {
			c.Default = c.Typecast(*def)
		}
	case (t == "timestamp" || t == "datetime" || strings.HasPrefix(t, "timestamp(") || strings.HasPrefix(t, "datetime(")) &&
		strings.HasPrefix(strings.ToUpper(*def), "CURRENT_TIMESTAMP"):
	default:
		c.Default = c.Typecast(*def)
	}
}

type mysqlLoader struct {
	q quoter
}

func (mysqlLoader) DefaultSchema(context.Context, dialect.ExecQuerier) (string, error) {
	return "", nil
}

func (l mysqlLoader) ResolveTableNames(t *Table, name, _ string) {
	parts := splitQualified(name)
	if len(parts) >= 2 {
		t.Schema, t.Name = parts[len(parts)-2], parts[len(parts)-1]
		t.RawName = l.q.QuoteSimpleTableName(t.Schema) + "." + l.q.QuoteSimpleTableName(t.Name)
		return
	}
	t.Name = parts[0]
	t.RawName = l.q.QuoteSimpleTableName(t.Name)
}

func (l mysqlLoader) LoadTable(ctx context.Context, ex dialect.ExecQuerier, t *Table, _ string) (bool, error) {
	rows, err := sql.QueryAll(ctx, ex, "SHOW FULL COLUMNS FROM "+t.RawName)
	if err != nil {
		return loadFailed(t, "columns", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	types := mysqlTypes{}
	for _, r := range rows {
		c := &Column{
			Name:          r.String("Field"),
			AllowNull:     r.String("Null") == "YES",
			IsPrimaryKey:  strings.Contains(r.String("Key"), "PRI"),
			AutoIncrement: strings.Contains(strings.ToLower(r.String("Extra")), "auto_increment"),
			Comment:       r.String("Comment"),
		}
		c.RawName = l.q.QuoteColumnName(c.Name)
		types.InitColumn(c, r.String("Type"), rawDefault(r, "Default"))
		t.AddColumn(c)
		if c.IsPrimaryKey {
			t.addPrimaryKey(c.Name)
			if c.AutoIncrement {
				t.setSequence("")
			}
		}
	}
	create, err := l.showCreateTable(ctx, ex, t.RawName)
	if err != nil {
		return loadFailed(t, "foreign keys", err)
	}
	for _, m := range mysqlFKRe.FindAllStringSubmatch(create, -1) {
		keys := strings.Split(strings.ReplaceAll(m[1], "`", ""), ",")
		refs := strings.Split(strings.ReplaceAll(m[3], "`", ""), ",")
		table := strings.ReplaceAll(m[2], "`", "")
		for i, k := range keys {
			k = strings.TrimSpace(k)
			if i >= len(refs) {
				break
			}
			t.ForeignKeys[k] = ForeignKey{RefTable: table, RefColumn: strings.TrimSpace(refs[i])}
			if c, ok := t.Column(k); ok {
				c.IsForeignKey = true
			}
		}
	}
	return true, nil
}

// showCreateTable returns the CREATE TABLE statement of a table.
func (mysqlLoader) showCreateTable(ctx context.Context, ex dialect.ExecQuerier, rawName string) (string, error) {
	row, err := sql.QueryRow(ctx, ex, "SHOW CREATE TABLE "+rawName)
	if err != nil || row == nil {
		return "", err
	}
	if s, ok := row.NullString("Create Table"); ok {
		return s, nil
	}
	for k := range row {
		if k != "Table" {
			return row.String(k), nil
		}
	}
	return "", nil
}

func (l mysqlLoader) FindTableNames(ctx context.Context, ex dialect.ExecQuerier, schema, _ string) ([]string, error) {
	query := "SHOW TABLES"
	if schema != "" {
		query += " FROM " + l.q.QuoteTableName(schema)
	}
	names, err := sql.QueryStrings(ctx, ex, query)
	if err != nil {
		return nil, listFailed("table names", err)
	}
	if schema != "" {
		for i, n := range names {
			names[i] = schema + "." + n
		}
	}
	return names, nil
}

func (mysqlLoader) CheckIntegrity(ctx context.Context, ex dialect.ExecQuerier, check bool, _, _ string) error {
	v := "0"
	if check {
		v = "1"
	}
	_, err := sql.Execute(ctx, ex, "SET FOREIGN_KEY_CHECKS="+v)
	return err
}

func (l mysqlLoader) ResetSequence(ctx context.Context, ex dialect.ExecQuerier, t *Table, value *int64) error {
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
	_, err := sql.Execute(ctx, ex, "ALTER TABLE "+t.RawName+" AUTO_INCREMENT="+strconv.FormatInt(next, 10))
	return err
}

type mysqlDDL struct {
	ddl
}

// RenameColumn keeps the column definition read from SHOW CREATE TABLE.
func (d mysqlDDL) RenameColumn(ctx context.Context, ex dialect.ExecQuerier, table, name, newName string) (string, error) {
	prefix := "ALTER TABLE " + d.q.QuoteTableName(table) + " CHANGE " + d.q.QuoteColumnName(name) + " " + d.q.QuoteColumnName(newName)
	if ex != nil {
		create, err := mysqlLoader{}.showCreateTable(ctx, ex, d.q.QuoteTableName(table))
		if err != nil {
			return "", err
		}
		for _, m := range mysqlDefRe.FindAllStringSubmatch(create, -1) {
			if m[1] == name {
				return prefix + " " + m[2], nil
			}
		}
	}
	return prefix, nil
}

func (d mysqlDDL) DropForeignKey(name, table string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " DROP FOREIGN KEY " + d.q.QuoteColumnName(name), nil
}

func (d mysqlDDL) DropPrimaryKey(_, table string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " DROP PRIMARY KEY", nil
}
