package schema

import (
	"context"
	"strings"

	"github.com/syssam/schemakit"
	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
)

// ddl renders the statements common to most dialects. Dialects embed it
// and override what they express differently.
type ddl struct {
	q       Quoter
	dialect string
	types   map[string]string
}

// ColumnType maps the first word of typ through the type map and keeps
// the remaining modifiers verbatim.
func (d ddl) ColumnType(typ string) string {
	if t, ok := d.types[typ]; ok {
		return t
	}
	if i := strings.IndexByte(typ, ' '); i > 0 {
		if t, ok := d.types[typ[:i]]; ok {
			return t + typ[i:]
		}
	}
	return typ
}

func (d ddl) unsupported(op string) error {
	return schemakit.NewUnsupportedError(d.dialect, op)
}

func (d ddl) CreateTable(table string, columns []ColumnDef, options string) (string, error) {
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			// table constraint, e.g. "PRIMARY KEY (a, b)"
			cols = append(cols, "\t"+c.Type)
			continue
		}
		cols = append(cols, "\t"+d.q.QuoteColumnName(c.Name)+" "+d.ColumnType(c.Type))
	}
	stmt := "CREATE TABLE " + d.q.QuoteTableName(table) + " (\n" + strings.Join(cols, ",\n") + "\n)"
	if options != "" {
		stmt += " " + options
	}
	return stmt, nil
}

func (d ddl) RenameTable(table, newName string) (string, error) {
	return "RENAME TABLE " + d.q.QuoteTableName(table) + " TO " + d.q.QuoteTableName(newName), nil
}

func (d ddl) DropTable(table string) (string, error) {
	return "DROP TABLE " + d.q.QuoteTableName(table), nil
}

func (d ddl) TruncateTable(table string) (string, error) {
	return "TRUNCATE TABLE " + d.q.QuoteTableName(table), nil
}

func (d ddl) AddColumn(table, column, typ string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " ADD " + d.q.QuoteColumnName(column) + " " + d.ColumnType(typ), nil
}

func (d ddl) DropColumn(table, column string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " DROP COLUMN " + d.q.QuoteSimpleColumnName(column), nil
}

func (d ddl) RenameColumn(_ context.Context, _ dialect.ExecQuerier, table, name, newName string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " RENAME COLUMN " + d.q.QuoteColumnName(name) +
		" TO " + d.q.QuoteColumnName(newName), nil
}

func (d ddl) AlterColumn(table, column, typ string) (string, error) {
	c := d.q.QuoteColumnName(column)
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " CHANGE " + c + " " + c + " " + d.ColumnType(typ), nil
}

func (d ddl) AddForeignKey(fk ForeignKeyDef) (string, error) {
	stmt := "ALTER TABLE " + d.q.QuoteTableName(fk.Table) + " ADD CONSTRAINT " + d.q.QuoteColumnName(fk.Name) +
		" FOREIGN KEY (" + d.columnList(fk.Columns) + ") REFERENCES " + d.q.QuoteTableName(fk.RefTable) +
		" (" + d.columnList(fk.RefColumns) + ")"
	if fk.OnDelete != "" {
		stmt += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		stmt += " ON UPDATE " + fk.OnUpdate
	}
	return stmt, nil
}

func (d ddl) DropForeignKey(name, table string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " DROP CONSTRAINT " + d.q.QuoteColumnName(name), nil
}

func (d ddl) CreateIndex(name, table string, columns []string, unique bool) (string, error) {
	stmt := "CREATE INDEX "
	if unique {
		stmt = "CREATE UNIQUE INDEX "
	}
	return stmt + d.q.QuoteTableName(name) + " ON " + d.q.QuoteTableName(table) + " (" + d.columnList(columns) + ")", nil
}

func (d ddl) DropIndex(name, table string) (string, error) {
	return "DROP INDEX " + d.q.QuoteTableName(name) + " ON " + d.q.QuoteTableName(table), nil
}

func (d ddl) AddPrimaryKey(name, table string, columns []string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " ADD CONSTRAINT " + d.q.QuoteColumnName(name) +
		" PRIMARY KEY (" + d.columnList(columns) + ")", nil
}

func (d ddl) DropPrimaryKey(name, table string) (string, error) {
	return "ALTER TABLE " + d.q.QuoteTableName(table) + " DROP CONSTRAINT " + d.q.QuoteColumnName(name), nil
}

// columnList quotes column names; expressions containing parentheses are
// kept as written.
func (d ddl) columnList(columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		if strings.Contains(c, "(") {
			cols[i] = c
		} else {
			cols[i] = d.q.QuoteColumnName(c)
		}
	}
	return strings.Join(cols, ", ")
}

// TableDDL renders a CREATE TABLE statement reproducing a loaded table:
// native column types, nullability, literal defaults, the primary key and
// foreign keys.
func (d *Dialect) TableDDL(t *Table) (string, error) {
	if t == nil {
		return "", errNilTable
	}
	defs := make([]ColumnDef, 0, len(t.ColumnNames)+len(t.ForeignKeys)+1)
	for _, c := range t.OrderedColumns() {
		typ := c.DBType
		if !c.AllowNull {
			typ += " NOT NULL"
		}
		if c.Default != nil {
			typ += " DEFAULT " + sql.QuoteValue(d.Name, c.Default)
		}
		// rendered verbatim, native types must not go through ColumnType
		defs = append(defs, ColumnDef{Type: d.QuoteColumnName(c.Name) + " " + typ})
	}
	if len(t.PrimaryKey) > 0 {
		defs = append(defs, ColumnDef{Type: "PRIMARY KEY (" + d.quoteColumns(t.PrimaryKey) + ")"})
	}
	for _, name := range t.ColumnNames {
		fk, ok := t.ForeignKeys[name]
		if !ok {
			continue
		}
		defs = append(defs, ColumnDef{Type: "FOREIGN KEY (" + d.QuoteColumnName(name) + ") REFERENCES " +
			d.QuoteTableName(fk.RefTable) + " (" + d.QuoteColumnName(fk.RefColumn) + ")"})
	}
	name := t.Name
	if t.Schema != "" {
		name = t.Schema + "." + t.Name
	}
	return d.CreateTable(name, defs, "")
}

func (d *Dialect) quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteColumnName(c)
	}
	return strings.Join(quoted, ", ")
}
