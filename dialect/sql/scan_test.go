package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemakit/dialect"
)

func TestQueryHelpers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)
	ctx := context.Background()

	t.Run("QueryAll", func(t *testing.T) {
		mock.ExpectQuery("SHOW FULL COLUMNS FROM `users`").
			WillReturnRows(sqlmock.NewRows([]string{"Field", "Type", "Null"}).
				AddRow([]byte("id"), []byte("int(11)"), "NO").
				AddRow("name", "varchar(255)", nil))
		rows, err := QueryAll(ctx, drv, "SHOW FULL COLUMNS FROM `users`")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "id", rows[0]["Field"])
		assert.Equal(t, "int(11)", rows[0].String("Type"))
		v, ok := rows[1].NullString("Null")
		assert.False(t, ok)
		assert.Empty(t, v)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryRow", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WithArgs("users").
			WillReturnRows(sqlmock.NewRows([]string{"n", "flag"}).AddRow(int64(3), "YES"))
		row, err := QueryRow(ctx, drv, "SELECT n, flag FROM t WHERE name = ?", "users")
		require.NoError(t, err)
		assert.Equal(t, int64(3), row.Int64("n"))
		assert.True(t, row.Bool("flag"))

		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"n"}))
		row, err = QueryRow(ctx, drv, "SELECT n FROM t")
		require.NoError(t, err)
		assert.Nil(t, row)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryStrings", func(t *testing.T) {
		mock.ExpectQuery("SHOW TABLES").
			WillReturnRows(sqlmock.NewRows([]string{"Tables_in_app"}).AddRow("users").AddRow(nil).AddRow([]byte("posts")))
		names, err := QueryStrings(ctx, drv, "SHOW TABLES")
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "posts"}, names)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryScalar", func(t *testing.T) {
		mock.ExpectQuery("SELECT MAX").WillReturnRows(sqlmock.NewRows([]string{"m"}).AddRow("41"))
		n, err := QueryInt64(ctx, drv, "SELECT MAX(`id`) FROM `users`")
		require.NoError(t, err)
		assert.Equal(t, int64(41), n)

		mock.ExpectQuery("SELECT MAX").WillReturnRows(sqlmock.NewRows([]string{"m"}))
		_, err = QueryScalar(ctx, drv, "SELECT MAX(`id`) FROM `users`")
		assert.True(t, errors.Is(err, ErrNoRows))

		mock.ExpectQuery("SELECT MAX").WillReturnRows(sqlmock.NewRows([]string{"m"}).AddRow(nil))
		n, err = QueryInt64(ctx, drv, "SELECT MAX(`id`) FROM `users`")
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Execute", func(t *testing.T) {
		mock.ExpectExec("UPDATE").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 2))
		n, err := Execute(ctx, drv, "UPDATE users SET active = ?", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("boom"))
		_, err := QueryAll(ctx, drv, "SELECT 1")
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRowAccessors(t *testing.T) {
	r := Row{"a": int32(5), "b": "12", "c": []byte("x"), "d": false, "e": 1.9, "f": "no"}
	assert.Equal(t, int64(5), r.Int64("a"))
	assert.Equal(t, int64(12), r.Int64("b"))
	assert.Equal(t, int64(0), r.Int64("c"))
	assert.Equal(t, "x", r.String("c"))
	assert.Equal(t, "5", r.String("a"))
	assert.False(t, r.Bool("d"))
	assert.True(t, r.Bool("a"))
	assert.Equal(t, int64(1), r.Int64("e"))
	assert.False(t, r.Bool("f"))
	assert.False(t, r.Bool("missing"))
}
