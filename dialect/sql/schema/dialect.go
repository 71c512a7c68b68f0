package schema

import (
	"context"
	"fmt"

	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql/sqlparse"
)

// Quoter quotes and compares identifiers.
type Quoter interface {
	// QuoteSimpleTableName quotes a table name without schema prefix.
	QuoteSimpleTableName(name string) string
	// QuoteSimpleColumnName quotes a column name without table prefix.
	QuoteSimpleColumnName(name string) string
	// QuoteTableName quotes every segment of a possibly schema-qualified name.
	QuoteTableName(name string) string
	// QuoteColumnName quotes every segment of a possibly qualified column
	// name. A trailing "*" is kept as is.
	QuoteColumnName(name string) string
	// Unquote strips the quoting of every segment.
	Unquote(name string) string
	// FoldName normalizes an unquoted name for comparisons.
	FoldName(name string) string
}

// TypeExtractor derives the abstract type, limits and default of a column
// from its native type and raw default.
type TypeExtractor interface {
	// InitColumn sets Type, Size, Precision, Scale and Default. A nil
	// rawDefault means the column has no default.
	InitColumn(c *Column, dbType string, rawDefault *string)
}

// MetadataLoader reads table metadata from the database catalog.
type MetadataLoader interface {
	// DefaultSchema returns the schema unqualified names resolve to. It
	// is empty when the connection's current database is used.
	DefaultSchema(ctx context.Context, ex dialect.ExecQuerier) (string, error)
	// ResolveTableNames sets Name, Schema, Catalog and RawName of t from a
	// possibly qualified name.
	ResolveTableNames(t *Table, name, defaultSchema string)
	// LoadTable loads primary key, columns and foreign keys of t. It
	// reports false when the table does not exist.
	LoadTable(ctx context.Context, ex dialect.ExecQuerier, t *Table, defaultSchema string) (bool, error)
	// FindTableNames lists the tables of a schema. Names of a non-default
	// schema are returned qualified.
	FindTableNames(ctx context.Context, ex dialect.ExecQuerier, schema, defaultSchema string) ([]string, error)
	// CheckIntegrity enables or disables constraint checking for the
	// tables of a schema.
	CheckIntegrity(ctx context.Context, ex dialect.ExecQuerier, check bool, schema, defaultSchema string) error
	// ResetSequence makes the next generated key of t equal value, or
	// max(key)+1 when value is nil. Tables without sequence are skipped.
	ResetSequence(ctx context.Context, ex dialect.ExecQuerier, t *Table, value *int64) error
}

// DDLGenerator renders schema changing statements. Operations a dialect
// cannot express return an error matching schemakit.ErrUnsupported.
type DDLGenerator interface {
	// ColumnType maps an abstract type ("pk", "string", "integer NOT NULL",
	// ...) to the native type. Unknown types are returned unchanged.
	ColumnType(typ string) string
	CreateTable(table string, columns []ColumnDef, options string) (string, error)
	RenameTable(table, newName string) (string, error)
	DropTable(table string) (string, error)
	TruncateTable(table string) (string, error)
	AddColumn(table, column, typ string) (string, error)
	DropColumn(table, column string) (string, error)
	// RenameColumn may read the current table definition through ex.
	RenameColumn(ctx context.Context, ex dialect.ExecQuerier, table, name, newName string) (string, error)
	AlterColumn(table, column, typ string) (string, error)
	AddForeignKey(fk ForeignKeyDef) (string, error)
	DropForeignKey(name, table string) (string, error)
	CreateIndex(name, table string, columns []string, unique bool) (string, error)
	DropIndex(name, table string) (string, error)
	AddPrimaryKey(name, table string, columns []string) (string, error)
	DropPrimaryKey(name, table string) (string, error)
}

// PaginationStrategy applies LIMIT and OFFSET to a SELECT statement.
type PaginationStrategy interface {
	// ApplyLimit bounds sql to limit rows after skipping offset rows.
	// Values <= 0 mean absent; with both absent sql is returned unchanged.
	ApplyLimit(sql string, limit, offset int) (string, error)
}

// ColumnDef is a column of a CreateTable statement.
type ColumnDef struct {
	Name string
	Type string // abstract or native type, mapped with ColumnType
}

// ForeignKeyDef describes a foreign key constraint to add.
type ForeignKeyDef struct {
	Name       string
	Table      string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string // e.g. "CASCADE", empty for the default
	OnUpdate   string
}

// Dialect bundles the components implementing one SQL dialect.
type Dialect struct {
	Name string
	Quoter
	TypeExtractor
	MetadataLoader
	DDLGenerator
	PaginationStrategy

	placeholder sqlparse.Placeholder
	lexer       []sqlparse.Option
	rules       commandRules
}

// commandRules holds the differences of the command builder between
// dialects.
type commandRules struct {
	// emptyInsert renders an insert without columns, or "" when the
	// generic form with the primary key set to pkDefault is used.
	emptyInsert func(t *Table) string
	pkDefault   string
	// missingValue fills absent columns of multi-row inserts.
	missingValue string
	// insertAll renders multi-row inserts as INSERT ALL (Oracle).
	insertAll bool
	// returning adds RETURNING pk INTO :RETURN_ID to inserts (Oracle).
	returning bool
	// orderForOffset orders by primary key when an offset is requested
	// without ordering (SQL Server).
	orderForOffset bool
	// skipOnUpdate reports columns the backend does not allow to update.
	skipOnUpdate func(t *Table, c *Column) bool
	// joinBeforeSet places UPDATE joins before SET and renders DELETE
	// joins as DELETE t FROM t JOIN (MySQL).
	joinBeforeSet bool
	// writeLimit reports that UPDATE and DELETE accept ORDER BY and LIMIT.
	writeLimit bool
	// concatIn renders composite IN conditions as concatenated strings
	// (SQLite).
	concatIn bool
	// likeEscape is appended to LIKE patterns escaped with backslash.
	likeEscape string
	// caseInsensitiveLike is the operator of case-insensitive searches.
	caseInsensitiveLike string
}

// NewDialect returns the components of the named dialect. Driver names
// such as "pgx" or "sqlite3" are accepted.
func NewDialect(name string) (*Dialect, error) {
	return newDialect(dialect.Normalize(name), "")
}

func newDialect(name, username string) (*Dialect, error) {
	switch name {
	case dialect.MySQL:
		return newMySQL(), nil
	case dialect.Postgres:
		return newPostgres(), nil
	case dialect.SQLite:
		return newSQLite(), nil
	case dialect.MSSQL:
		return newMSSQL(), nil
	case dialect.Oracle:
		return newOracle(username), nil
	default:
		return nil, fmt.Errorf("schema: unsupported dialect %q", name)
	}
}
