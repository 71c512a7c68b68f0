package schema

import (
	"testing"

	atlas "ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemakit/dialect"
)

func TestToAtlas(t *testing.T) {
	d := mustDialect(t, dialect.Postgres)
	users := usersTable(d)
	users.Columns["name"].Size = intp(64)
	users.Columns["name"].Default = "o'neil"
	users.Columns["name"].Comment = "display name"
	users.Columns["active"].Default = true
	addColumn(d, users, "ratio", TypeDouble, "double precision", true)
	users.Columns["ratio"].Default = 0.5
	addColumn(d, users, "avatar", TypeBinary, "bytea", true)
	addColumn(d, users, "born", TypeUnspecified, "date", true)

	posts := NewTable("posts")
	addColumn(d, posts, "id", TypeInteger, "integer", false)
	addColumn(d, posts, "user_id", TypeInteger, "integer", true)
	addColumn(d, posts, "org_id", TypeInteger, "integer", true)
	posts.addPrimaryKey("id")
	posts.ForeignKeys["user_id"] = ForeignKey{RefTable: "public.users", RefColumn: "id"}
	posts.ForeignKeys["org_id"] = ForeignKey{RefTable: "orgs", RefColumn: "id"}

	s, err := ToAtlas("public", []*Table{users, nil, posts})
	require.NoError(t, err)
	assert.Equal(t, "public", s.Name)
	require.Len(t, s.Tables, 2)

	at, ok := s.Table("users")
	require.True(t, ok)
	require.Len(t, at.Columns, 7)
	require.NotNil(t, at.PrimaryKey)
	require.Len(t, at.PrimaryKey.Parts, 1)
	assert.Equal(t, "id", at.PrimaryKey.Parts[0].C.Name)

	id, ok := at.Column("id")
	require.True(t, ok)
	assert.IsType(t, &atlas.IntegerType{}, id.Type.Type)
	assert.False(t, id.Type.Null)
	assert.Nil(t, id.Default)

	name, ok := at.Column("name")
	require.True(t, ok)
	require.IsType(t, &atlas.StringType{}, name.Type.Type)
	assert.Equal(t, 64, name.Type.Type.(*atlas.StringType).Size)
	assert.Equal(t, "varchar(64)", name.Type.Raw)
	assert.Equal(t, &atlas.Literal{V: "'o''neil'"}, name.Default)

	active, _ := at.Column("active")
	assert.IsType(t, &atlas.BoolType{}, active.Type.Type)
	assert.True(t, active.Type.Null)
	assert.Equal(t, &atlas.Literal{V: "true"}, active.Default)

	ratio, _ := at.Column("ratio")
	assert.IsType(t, &atlas.FloatType{}, ratio.Type.Type)
	assert.Equal(t, &atlas.Literal{V: "0.5"}, ratio.Default)

	avatar, _ := at.Column("avatar")
	assert.IsType(t, &atlas.BinaryType{}, avatar.Type.Type)
	born, _ := at.Column("born")
	assert.Equal(t, &atlas.UnsupportedType{T: "date"}, born.Type.Type)

	pt, ok := s.Table("posts")
	require.True(t, ok)
	require.Len(t, pt.ForeignKeys, 1)
	fk := pt.ForeignKeys[0]
	assert.Equal(t, "fk_posts_user_id", fk.Symbol)
	assert.Same(t, at, fk.RefTable)
	require.Len(t, fk.Columns, 1)
	assert.Equal(t, "user_id", fk.Columns[0].Name)
	require.Len(t, fk.RefColumns, 1)
	assert.Equal(t, "id", fk.RefColumns[0].Name)
}

func TestToAtlasErrors(t *testing.T) {
	d := mustDialect(t, dialect.SQLite)

	broken := usersTable(d)
	broken.PrimaryKey = []string{"uid"}
	_, err := ToAtlas("main", []*Table{broken})
	assert.EqualError(t, err, "schema: primary key column users.uid not found")

	posts := NewTable("posts")
	addColumn(d, posts, "user_id", TypeInteger, "integer", true)
	posts.ForeignKeys["user_id"] = ForeignKey{RefTable: "users", RefColumn: "uid"}
	_, err = ToAtlas("main", []*Table{usersTable(d), posts})
	assert.EqualError(t, err, "schema: foreign key posts.user_id references unknown column users.uid")
}
