package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	mssql "github.com/microsoft/go-mssqldb"
)

// sqlStateError is implemented by pgx errors and some MySQL drivers.
type sqlStateError interface {
	SQLState() string
}

// errorNumberer is implemented by go-mssqldb errors.
type errorNumberer interface {
	SQLErrorNumber() int32
}

// PostgreSQL SQLSTATE codes.
const (
	pgUndefinedTable      = "42P01"
	pgUndefinedObject     = "42704"
	pgInvalidSchema       = "3F000"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MySQL error numbers.
const (
	mysqlNoSuchTable     = 1146
	mysqlUnknownDatabase = 1049
	mysqlDuplicateEntry  = 1062
	mysqlFKParent        = 1451
	mysqlFKChild         = 1452
)

// SQL Server error numbers.
const (
	mssqlInvalidObject = 208
	mssqlDuplicateKey  = 2627
	mssqlDuplicateIdx  = 2601
	mssqlFKConflict    = 547
)

// code extracts the driver specific error code of err, if any. PostgreSQL
// codes are SQLSTATE strings, MySQL and SQL Server codes are numbers.
func code(err error) (state string, number int64) {
	var (
		my *mysql.MySQLError
		pe *pq.Error
		pg *pgconn.PgError
		ms mssql.Error
	)
	switch {
	case errors.As(err, &my):
		return string(my.SQLState[:]), int64(my.Number)
	case errors.As(err, &pe):
		return string(pe.Code), 0
	case errors.As(err, &pg):
		return pg.Code, 0
	case errors.As(err, &ms):
		return "", int64(ms.Number)
	}
	if e, ok := asError[sqlStateError](err); ok {
		state = e.SQLState()
	}
	if e, ok := asError[errorNumberer](err); ok {
		number = int64(e.SQLErrorNumber())
	}
	return state, number
}

// IsUndefinedTable reports if the error resulted from referencing a table
// (or schema) that does not exist. Introspection queries use it to turn a
// missing table into an absent descriptor.
func IsUndefinedTable(err error) bool {
	if err == nil {
		return false
	}
	state, number := code(err)
	switch {
	case state == pgUndefinedTable, state == pgInvalidSchema:
		return true
	case isMSSQL(err):
		return number == mssqlInvalidObject
	case number == mysqlNoSuchTable, number == mysqlUnknownDatabase:
		return true
	}
	// Fallback to string matching for drivers that don't expose codes
	// (modernc.org/sqlite, Oracle drivers).
	return containsAny(err.Error(),
		"no such table",                  // SQLite
		"ORA-00942",                      // Oracle: table or view does not exist
		"Error 1146",                     // MySQL
		"Invalid object name",            // SQL Server
		"does not exist (SQLSTATE 42P01)", // pgx
	)
}

// IsUndefinedObject reports if the error resulted from referencing a
// sequence or other schema object that does not exist.
func IsUndefinedObject(err error) bool {
	if err == nil {
		return false
	}
	if state, _ := code(err); state == pgUndefinedObject {
		return true
	}
	return containsAny(err.Error(),
		"ORA-02289", // Oracle: sequence does not exist
		"ORA-04043", // Oracle: object does not exist
	) || IsUndefinedTable(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	state, number := code(err)
	switch {
	case state == pgUniqueViolation:
		return true
	case isMSSQL(err):
		return number == mssqlDuplicateKey || number == mssqlDuplicateIdx
	case number == mysqlDuplicateEntry:
		return true
	}
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
		"ORA-00001",                  // Oracle
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	state, number := code(err)
	switch {
	case state == pgForeignKeyViolation:
		return true
	case isMSSQL(err):
		return number == mssqlFKConflict
	case number == mysqlFKParent, number == mysqlFKChild:
		return true
	}
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL
		"Error 1452",                      // MySQL
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
		"ORA-02291", "ORA-02292",          // Oracle
	)
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) || IsForeignKeyConstraintError(err)
}

func isMSSQL(err error) bool {
	var ms mssql.Error
	if errors.As(err, &ms) {
		return true
	}
	_, ok := asError[errorNumberer](err)
	return ok
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
