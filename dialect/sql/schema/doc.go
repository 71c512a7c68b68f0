// Package schema loads table metadata from MySQL, PostgreSQL, SQLite,
// SQL Server and Oracle catalogs and builds parameterized statements
// against the loaded tables.
//
// A Catalog resolves table names, loads and caches Table descriptors and
// exposes the CommandBuilder of its dialect. Each dialect is a Dialect
// value bundling a Quoter, a TypeExtractor, a MetadataLoader, a
// DDLGenerator and a PaginationStrategy.
//
// Statements use named parameters (":name") in their SQL. Statement.Bind
// rewrites them into the positional placeholders of the dialect:
//
//	t, err := cat.MustTable(ctx, "users")
//	if err != nil {
//	    return err
//	}
//	stmt, err := cat.CommandBuilder().Insert(t, map[string]any{"name": "a"})
//	if err != nil {
//	    return err
//	}
//	n, err := stmt.Execute(ctx, drv)
//
// LIMIT and OFFSET are emulated where the dialect lacks them. SQL Server
// rewrites offset queries into nested TOP queries and requires an ORDER BY
// clause whose items are output columns of the query; statements it cannot
// rewrite fail with schemakit.ErrUnsupported instead of returning wrong rows.
package schema
