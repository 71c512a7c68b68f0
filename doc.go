// Package schemakit introspects relational database schemas and builds
// parameterized SQL for MySQL, PostgreSQL, SQLite, SQL Server and Oracle
// behind one table/column/command model.
//
// The root package holds the error kinds shared by every layer and the
// pluggable Cache contract. The work happens in the sub-packages:
//
//   - dialect: dialect names and the Driver contract of the connection layer
//   - dialect/sql: database/sql backed driver, query helpers and statistics
//   - dialect/sql/sqlparse: minimal SQL lexer used for statement rewriting
//   - dialect/sql/schema: the schema catalog, column/table descriptors and
//     the command builder
//
// # Usage
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cat, err := schema.NewCatalog(drv, schema.WithTablePrefix("app_"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	users, err := cat.Table(ctx, "{{users}}")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if users == nil {
//	    // table does not exist
//	}
//	stmt, err := cat.CommandBuilder().Find(users, schema.NewCriteria().
//	    Where("t.status=:status", "status", "active").
//	    WithLimit(10).WithOffset(20))
//	query, args, err := stmt.Bind()
//
// # Errors
//
// Missing tables are reported as a nil descriptor, not an error. Operations
// a dialect cannot express return an error matching ErrUnsupported, and
// inserts or updates without usable columns return ErrNoColumns.
package schemakit
