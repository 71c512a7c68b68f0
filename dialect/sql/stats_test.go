package sql

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/schemakit/dialect"
)

func TestOriginFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, OriginCommand, OriginFromContext(ctx))
	ctx = WithOrigin(ctx, OriginIntrospection)
	assert.Equal(t, OriginIntrospection, OriginFromContext(ctx))
	assert.Equal(t, "introspection", OriginIntrospection.String())
	assert.Equal(t, "command", OriginCommand.String())
}

func TestStatsDriverOrigins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.MySQL, db), WithSlowThreshold(time.Hour))
	ctx := context.Background()
	meta := WithOrigin(ctx, OriginIntrospection)

	mock.ExpectQuery("SELECT DATABASE()").WillReturnRows(sqlmock.NewRows([]string{"db"}).AddRow("app"))
	mock.ExpectQuery("SHOW FULL COLUMNS").WillReturnRows(sqlmock.NewRows([]string{"Field"}).AddRow("id"))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = QueryStrings(meta, drv, "SELECT DATABASE()")
	require.NoError(t, err)
	_, err = QueryAll(meta, drv, "SHOW FULL COLUMNS FROM users")
	require.NoError(t, err)
	n, err := Execute(ctx, drv, "UPDATE users SET active=0")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	_, err = Execute(ctx, tx, "DELETE FROM users")
	require.Error(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, OriginStats{Queries: 2}, s.Introspection)
	assert.Equal(t, OriginStats{Execs: 2}, s.Commands)
	assert.Equal(t, int64(2), s.TotalQueries)
	assert.Equal(t, int64(2), s.TotalExecs)
	assert.Equal(t, int64(1), s.Errors)
	assert.Zero(t, s.SlowQueries)
	assert.Contains(t, s.String(), "introspection=2 commands=2 queries=2 execs=2")
}

func TestSlowQueryLogger(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
		WithSlowThreshold(-time.Nanosecond),
		WithSlowQueryLogger(logger),
	)
	mock.ExpectQuery("PRAGMA index_list").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	_, err = QueryAll(WithOrigin(context.Background(), OriginIntrospection), drv, "PRAGMA index_list(users)")
	require.NoError(t, err)
	assert.Equal(t, int64(1), drv.QueryStats().Stats().SlowQueries)
	assert.Contains(t, buf.String(), "msg=\"slow statement\" origin=introspection")
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.Postgres, db), DebugWithLogger(logger))
	ctx := context.Background()

	mock.ExpectQuery("SELECT current_schema()").WillReturnRows(sqlmock.NewRows([]string{"s"}).AddRow("public"))
	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	_, err = QueryStrings(WithOrigin(ctx, OriginIntrospection), drv, "SELECT current_schema()")
	require.NoError(t, err)
	tx, err := drv.Tx(ctx)
	require.NoError(t, err)
	_, err = Execute(ctx, tx, "TRUNCATE users")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=query sql=\"SELECT current_schema()\" args=[] origin=introspection")
	assert.Contains(t, out, "msg=begin origin=command")
	assert.Contains(t, out, "msg=exec sql=\"TRUNCATE users\" args=[] tx=true origin=command")
	assert.Contains(t, out, "msg=commit origin=command")
}
