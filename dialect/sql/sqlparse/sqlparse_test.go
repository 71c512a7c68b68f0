package sqlparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	toks, err := Tokenize(`SELECT 'a:b', "x""y", [z], a::int -- :c
FROM t WHERE (id = :id) /* :d */`)
	require.NoError(t, err)
	var kinds []Kind
	var params []string
	for _, tok := range significant(toks) {
		kinds = append(kinds, tok.Kind)
		if tok.Kind == Param {
			params = append(params, tok.Name())
		}
	}
	assert.Equal(t, []string{"id"}, params)
	assert.Equal(t, []Kind{Word, String, Punct, Ident, Punct, Ident, Punct, Word, Punct, Word,
		Word, Word, Word, Punct, Word, Punct, Param, Punct}, kinds)

	for _, bad := range []string{"SELECT 'a", `SELECT "a`, "SELECT [a", "SELECT (1", "SELECT 1)", "SELECT /* x"} {
		_, err := Tokenize(bad)
		var se *SyntaxError
		assert.True(t, errors.As(err, &se), bad)
	}
}

func TestTokenDepth(t *testing.T) {
	toks, err := Tokenize("a (b (c)) d")
	require.NoError(t, err)
	depth := map[string]int{}
	for _, tok := range significant(toks) {
		if tok.Kind == Word {
			depth[tok.Text] = tok.Depth
		}
	}
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2, "d": 0}, depth)
}

func TestParseSelect(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		s, err := ParseSelect("SELECT * FROM [users] [t] ORDER BY [t].[id] DESC, name")
		require.NoError(t, err)
		assert.False(t, s.Distinct)
		assert.False(t, s.Top)
		assert.Equal(t, len("SELECT"), s.HeadEnd)
		assert.True(t, s.HasStar())
		require.Len(t, s.Order, 2)
		assert.Equal(t, OrderItem{Expr: "[t].[id]", Dir: Desc, Column: []string{"t", "id"}}, s.Order[0])
		assert.Equal(t, OrderItem{Expr: "name", Dir: Asc, Column: []string{"name"}}, s.Order[1])
		assert.Equal(t, "SELECT * FROM [users] [t]", s.WithoutOrder())
		assert.Equal(t, "SELECT TOP 5 * FROM [users] [t] ORDER BY [t].[id] DESC, name", s.InsertAfterHead(" TOP 5"))
	})

	t.Run("Distinct", func(t *testing.T) {
		s, err := ParseSelect("select distinct a, b from t")
		require.NoError(t, err)
		assert.True(t, s.Distinct)
		assert.Equal(t, len("select distinct"), s.HeadEnd)
		assert.Empty(t, s.Order)
		assert.Equal(t, -1, s.OrderPos)
	})

	t.Run("Top", func(t *testing.T) {
		s, err := ParseSelect("SELECT TOP (10) PERCENT a FROM t")
		require.NoError(t, err)
		assert.True(t, s.Top)
		require.Len(t, s.Items, 1)
		assert.Equal(t, "a", s.Items[0].Expr)
	})

	t.Run("NestedOrderIgnored", func(t *testing.T) {
		s, err := ParseSelect("SELECT a FROM (SELECT a FROM t ORDER BY a) x WHERE b = 'ORDER BY c'")
		require.NoError(t, err)
		assert.Empty(t, s.Order)
	})

	t.Run("OrderBeforeLimit", func(t *testing.T) {
		s, err := ParseSelect("SELECT a FROM t ORDER BY a LIMIT 10")
		require.NoError(t, err)
		require.Len(t, s.Order, 1)
		assert.Equal(t, "SELECT a FROM t LIMIT 10", s.WithoutOrder())
	})

	t.Run("Aliases", func(t *testing.T) {
		s, err := ParseSelect("SELECT t.id, t.name AS [username], COUNT(*) cnt, CASE WHEN a THEN 1 ELSE 0 END flag, t.* FROM t")
		require.NoError(t, err)
		require.Len(t, s.Items, 5)
		assert.Equal(t, SelectItem{Expr: "t.id", Column: []string{"t", "id"}}, s.Items[0])
		assert.Equal(t, SelectItem{Expr: "t.name", Alias: "username", Column: []string{"t", "name"}}, s.Items[1])
		assert.Equal(t, "cnt", s.Items[2].Alias)
		assert.Equal(t, "COUNT(*)", s.Items[2].Expr)
		assert.Equal(t, "flag", s.Items[3].Alias)
		assert.True(t, s.Items[4].Star)
		assert.Equal(t, "username", s.Items[1].OutputName())
		assert.Equal(t, "id", s.Items[0].OutputName())
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := ParseSelect("UPDATE t SET a = 1")
		assert.ErrorIs(t, err, ErrNotSelect)
		_, err = ParseSelect("SELECT a FROM t ORDER BY a NULLS LAST")
		assert.Error(t, err)
		_, err = ParseSelect("SELECT a FROM t ORDER BY LIMIT 1")
		assert.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	s, err := ParseSelect("SELECT [t].[id], [t].[name] AS [username], LOWER(email) AS mail FROM [users] [t] " +
		"ORDER BY t.name, [t].[id] DESC, LOWER(email), mail, created")
	require.NoError(t, err)
	require.Len(t, s.Order, 5)
	tests := []struct {
		want string
		ok   bool
	}{
		{"username", true},
		{"id", true},
		{"mail", true},
		{"mail", true},
		{"", false},
	}
	for i, tt := range tests {
		got, ok := s.Resolve(s.Order[i])
		assert.Equal(t, tt.ok, ok, s.Order[i].Expr)
		assert.Equal(t, tt.want, got, s.Order[i].Expr)
	}

	s, err = ParseSelect("SELECT * FROM users ORDER BY created, UPPER(name)")
	require.NoError(t, err)
	got, ok := s.Resolve(s.Order[0])
	assert.True(t, ok)
	assert.Equal(t, "created", got)
	_, ok = s.Resolve(s.Order[1])
	assert.False(t, ok)
}

func TestBind(t *testing.T) {
	params := map[string]any{"id": 7, ":name": "x", "unused": true}
	query := "SELECT * FROM t WHERE id=:id AND name=:name AND note <> ':id' AND x::text = :id"
	tests := []struct {
		style Placeholder
		want  string
	}{
		{Question, "SELECT * FROM t WHERE id=? AND name=? AND note <> ':id' AND x::text = ?"},
		{Dollar, "SELECT * FROM t WHERE id=$1 AND name=$2 AND note <> ':id' AND x::text = $3"},
		{AtP, "SELECT * FROM t WHERE id=@p1 AND name=@p2 AND note <> ':id' AND x::text = @p3"},
		{Colon, "SELECT * FROM t WHERE id=:1 AND name=:2 AND note <> ':id' AND x::text = :3"},
	}
	for _, tt := range tests {
		q, args, err := Bind(query, params, tt.style)
		require.NoError(t, err)
		assert.Equal(t, tt.want, q)
		assert.Equal(t, []any{7, "x", 7}, args)
	}

	q, args, err := Bind("SELECT 1", nil, Dollar)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", q)
	assert.Nil(t, args)

	_, _, err = Bind("SELECT * FROM t WHERE id=:missing", params, Question)
	var me *MissingParamError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "missing", me.Name)
}

func TestBindBackslashEscapes(t *testing.T) {
	query := `SELECT * FROM t WHERE name='O\'Brien' AND note="a\":b" AND id=:id AND path='C:\\' AND x=:x`
	_, _, err := Bind(query, map[string]any{"id": 1, "x": 2}, Question)
	var se *SyntaxError
	require.ErrorAs(t, err, &se, "backslashes are plain characters by default")

	q, args, err := Bind(query, map[string]any{"id": 1, "x": 2}, Question, BackslashEscapes())
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM t WHERE name='O\'Brien' AND note="a\":b" AND id=? AND path='C:\\' AND x=?`, q)
	assert.Equal(t, []any{1, 2}, args)

	// Standard literals end at the first quote.
	q, args, err = Bind(`SELECT * FROM t WHERE path='C:\' AND id=:id`, map[string]any{"id": 1}, Dollar)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM t WHERE path='C:\' AND id=$1`, q)
	assert.Equal(t, []any{1}, args)

	toks, err := Tokenize("SELECT `a\` FROM t", BackslashEscapes())
	require.NoError(t, err)
	assert.Equal(t, "`a\`", significant(toks)[1].Text)
}

func TestParams(t *testing.T) {
	names, err := Params("a=:a AND b=:b AND c=:a AND d='x:y'")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "a", Unquote("[a]"))
	assert.Equal(t, `a"b`, Unquote(`"a""b"`))
	assert.Equal(t, "a", Unquote("`a`"))
	assert.Equal(t, "a", Unquote("a"))
	assert.Equal(t, "", Unquote(""))
}
