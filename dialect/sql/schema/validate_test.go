package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemakit/dialect"
)

func messages(errs []*ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

func TestValidateDiff(t *testing.T) {
	d := mustDialect(t, dialect.MySQL)

	t.Run("Unchanged", func(t *testing.T) {
		result := ValidateDiff([]*Table{usersTable(d)}, []*Table{usersTable(d)})
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings())
		assert.False(t, result.HasBreakingChanges())
		assert.Equal(t, "No issues found", result.String())
	})

	t.Run("DropTable", func(t *testing.T) {
		result := ValidateDiff([]*Table{usersTable(d)}, nil)
		assert.Equal(t, []string{"users: table will be dropped"}, messages(result.Errors))
		assert.True(t, result.HasBreakingChanges())

		result = ValidateDiff([]*Table{usersTable(d)}, nil, AllowDropTable())
		assert.Empty(t, result.Errors)
		assert.Equal(t, []string{"users: table will be dropped"}, messages(result.Warnings))
		assert.True(t, result.HasBreakingChanges())
	})

	t.Run("NewTable", func(t *testing.T) {
		result := ValidateDiff(nil, []*Table{usersTable(d)})
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings())
	})

	t.Run("Columns", func(t *testing.T) {
		current, desired := usersTable(d), usersTable(d)
		delete(desired.Columns, "active")
		desired.ColumnNames = desired.ColumnNames[:3]
		addColumn(d, desired, "email", TypeString, "varchar(255)", false)
		addColumn(d, desired, "bio", TypeString, "text", true)
		addColumn(d, desired, "rank", TypeInteger, "int", false)
		desired.Columns["rank"].Default = int64(0)

		result := ValidateDiff([]*Table{current}, []*Table{desired})
		assert.Equal(t, []string{"users.active: column will be dropped"}, messages(result.Errors))
		assert.Equal(t, []string{"users.email: new NOT NULL column without default value may fail if table has data"}, messages(result.Warnings))
		assert.True(t, result.HasBreakingChanges())

		result = ValidateDiff([]*Table{current}, []*Table{desired}, AllowDropColumn())
		assert.False(t, result.HasErrors())
		assert.Len(t, result.Warnings, 2)
	})

	t.Run("ColumnChanges", func(t *testing.T) {
		current, desired := usersTable(d), usersTable(d)
		current.Columns["name"].Size = intp(64)
		desired.Columns["name"].Size = intp(32)
		desired.Columns["name"].DBType = "varchar(32)"
		desired.Columns["age"].DBType = "varchar(8)"
		desired.Columns["age"].Type = TypeString
		desired.Columns["age"].AllowNull = false
		desired.Columns["active"].DBType = "BOOLEAN"

		result := ValidateDiff([]*Table{current}, []*Table{desired})
		assert.Equal(t, []string{
			"users.age: column changing from NULL to NOT NULL may fail if column has NULL values",
		}, messages(result.Errors))
		assert.Equal(t, []string{
			"users.name: column type changing from varchar(64) to varchar(32)",
			"users.name: column size reducing from 64 to 32 may truncate data",
			"users.age: column type changing from int to varchar(8)",
		}, messages(result.Warnings))
		assert.False(t, result.Warnings[0].Breaking)
		assert.True(t, result.Warnings[2].Breaking)

		result = ValidateDiff([]*Table{current}, []*Table{desired}, AllowNullToNotNull())
		assert.False(t, result.HasErrors())
		assert.Len(t, result.Warnings, 4)
	})

	t.Run("PrimaryKey", func(t *testing.T) {
		current, desired := pairsTable(d), pairsTable(d)
		desired.Columns["a"].IsPrimaryKey = true
		result := ValidateDiff([]*Table{current}, []*Table{desired})
		assert.Equal(t, []string{"pairs.a: adding column to PRIMARY KEY may fail if duplicate values exist"}, messages(result.Warnings))
	})

	t.Run("ForeignKeys", func(t *testing.T) {
		current, desired := usersTable(d), usersTable(d)
		current.ForeignKeys["age"] = ForeignKey{RefTable: "ages", RefColumn: "id"}
		result := ValidateDiff([]*Table{current}, []*Table{desired})
		assert.Equal(t, []string{"users.age: foreign key to ages.id will be dropped"}, messages(result.Errors))
		assert.False(t, result.HasBreakingChanges())

		result = ValidateDiff([]*Table{current}, []*Table{desired}, AllowDropForeignKey())
		assert.False(t, result.HasErrors())
		assert.Len(t, result.Warnings, 1)
	})
}

func TestValidateTable(t *testing.T) {
	d := mustDialect(t, dialect.Postgres)

	t.Run("Valid", func(t *testing.T) {
		result := ValidateTable(usersTable(d))
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings())
	})

	t.Run("NoPrimaryKey", func(t *testing.T) {
		result := ValidateTable(logsTable(d))
		assert.False(t, result.HasErrors())
		assert.Equal(t, []string{"logs: table has no primary key"}, messages(result.Warnings))
	})

	t.Run("Broken", func(t *testing.T) {
		tbl := usersTable(d)
		tbl.ColumnNames = append(tbl.ColumnNames, "name", "ghost")
		tbl.PrimaryKey = []string{"uid"}
		tbl.ForeignKeys["org_id"] = ForeignKey{RefTable: "orgs", RefColumn: "id"}
		result := ValidateTable(tbl)
		assert.Equal(t, []string{
			"users.name: duplicate column name",
			"users.ghost: column has no descriptor",
			"users.uid: primary key references non-existent column",
			"users: table has a sequence but no auto-increment primary key column",
			`users: foreign key references non-existent column "org_id"`,
		}, messages(result.Errors))
	})
}

func TestValidateSchema(t *testing.T) {
	d := mustDialect(t, dialect.Postgres)
	users := usersTable(d)
	posts := NewTable("posts")
	addColumn(d, posts, "id", TypeInteger, "integer", false)
	addColumn(d, posts, "user_id", TypeInteger, "integer", true)
	addColumn(d, posts, "org_id", TypeInteger, "integer", true)
	posts.addPrimaryKey("id")
	posts.ForeignKeys["user_id"] = ForeignKey{RefTable: "public.users", RefColumn: "id"}
	posts.ForeignKeys["org_id"] = ForeignKey{RefTable: "orgs", RefColumn: "id"}

	result := ValidateSchema([]*Table{users, posts})
	assert.False(t, result.HasErrors())
	assert.Equal(t, []string{`posts.org_id: foreign key references table "orgs" outside the validated set`}, messages(result.Warnings))

	result = ValidateSchema([]*Table{users, posts, usersTable(d)})
	assert.Equal(t, []string{"users: duplicate table name"}, messages(result.Errors))
}

func TestValidationResultString(t *testing.T) {
	result := &ValidationResult{
		Errors:   []*ValidationError{{Table: "users", Column: "age", Message: "column will be dropped", Breaking: true}},
		Warnings: []*ValidationError{{Table: "logs", Message: "table has no primary key"}},
	}
	require.True(t, result.HasBreakingChanges())
	assert.Equal(t, "Errors:\n  - users.age: column will be dropped [BREAKING]\nWarnings:\n  - logs: table has no primary key\n", result.String())
}
