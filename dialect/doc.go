// Package dialect provides database dialect abstraction for schemakit.
//
// This package defines the interfaces and names used for database-specific
// operations, allowing the schema catalog to support multiple database
// backends.
//
// # Supported Dialects
//
// The following dialects are supported:
//
//   - MySQL: MySQL/MariaDB database
//   - Postgres: PostgreSQL database
//   - SQLite: SQLite database
//   - MSSQL: Microsoft SQL Server
//   - Oracle: Oracle Database
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.MySQL    = "mysql"
//	dialect.Postgres = "postgres"
//	dialect.SQLite   = "sqlite"
//	dialect.MSSQL    = "sqlserver"
//	dialect.Oracle   = "oracle"
//
// Driver names and aliases ("pgx", "sqlite3", "mssql", "godror", ...) are
// mapped to these constants by Normalize.
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface extends ExecQuerier with transaction methods:
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # Sub-packages
//
// The dialect package contains several sub-packages:
//
//   - dialect/sql: database/sql driver, query helpers and statistics
//   - dialect/sql/sqlparse: SQL lexer used by statement rewriting
//   - dialect/sql/schema: schema catalog and command builder
package dialect
