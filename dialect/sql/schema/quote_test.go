package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemakit/dialect"
)

func TestQuoter(t *testing.T) {
	tests := []struct {
		dialect    string
		table      string
		wantTable  string
		column     string
		wantColumn string
	}{
		{dialect.MySQL, "app.users", "`app`.`users`", "t.name", "`t`.`name`"},
		{dialect.SQLite, "users", "`users`", "t.*", "`t`.*"},
		{dialect.Postgres, "public.users", `"public"."users"`, "name", `"name"`},
		{dialect.MSSQL, "db.dbo.users", "[db].[dbo].[users]", "dbo.users.id", "[dbo].[users].[id]"},
		{dialect.Oracle, "SCOTT.EMP", `"SCOTT"."EMP"`, "t.EMPNO", `"t"."EMPNO"`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := NewDialect(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTable, d.QuoteTableName(tt.table))
			assert.Equal(t, tt.wantColumn, d.QuoteColumnName(tt.column))

			// idempotent
			assert.Equal(t, tt.wantTable, d.QuoteTableName(tt.wantTable))
			assert.Equal(t, tt.wantColumn, d.QuoteColumnName(tt.wantColumn))

			// round trip
			assert.Equal(t, tt.table, d.Unquote(d.QuoteTableName(tt.table)))
		})
	}
}

func TestQuoterEmbeddedQuotes(t *testing.T) {
	tests := []struct {
		dialect string
		name    string
		want    string
	}{
		{dialect.MySQL, "we`ird", "`we``ird`"},
		{dialect.Postgres, `we"ird`, `"we""ird"`},
		{dialect.MSSQL, "we]ird", "[we]]ird]"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := NewDialect(tt.dialect)
			require.NoError(t, err)
			quoted := d.QuoteSimpleColumnName(tt.name)
			assert.Equal(t, tt.want, quoted)
			assert.Equal(t, tt.name, d.Unquote(quoted))
		})
	}
}

func TestQuoterSpecialNames(t *testing.T) {
	d, err := NewDialect(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "{{users}}", d.QuoteTableName("{{users}}"))
	assert.Equal(t, "(SELECT 1)", d.QuoteTableName("(SELECT 1)"))
	assert.Equal(t, `"my.schema"."users"`, d.QuoteTableName(`"my.schema".users`))
}

func TestFoldName(t *testing.T) {
	for name, fold := range map[string]bool{
		dialect.MySQL:    true,
		dialect.MSSQL:    true,
		dialect.Postgres: false,
		dialect.SQLite:   false,
		dialect.Oracle:   false,
	} {
		d, err := NewDialect(name)
		require.NoError(t, err)
		assert.Equal(t, fold, d.FoldName("Users") == d.FoldName("USERS"), name)
	}
}

func TestNewDialect(t *testing.T) {
	for _, name := range []string{"pgx", "postgresql", "sqlite3", "mssql", "mariadb", "godror"} {
		d, err := NewDialect(name)
		require.NoError(t, err, name)
		assert.Equal(t, dialect.Normalize(name), d.Name)
	}
	_, err := NewDialect("db2")
	require.EqualError(t, err, `schema: unsupported dialect "db2"`)
}
