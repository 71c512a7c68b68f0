// Package sql provides the database/sql backed implementation of
// dialect.Driver together with the helpers the schema catalog uses to talk
// to a database.
//
// # Drivers
//
// Open and OpenDB wrap a database/sql handle. The driver name is mapped to
// its dialect, so "pgx" and "postgres" both report dialect.Postgres:
//
//	drv, err := sql.Open("pgx", "postgres://localhost/app")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// Session variables can be attached to a context and are set on the
// connection before every statement:
//
//	ctx = sql.WithVar(ctx, "search_path", "tenant_42")
//
// # Query Helpers
//
// QueryAll, QueryRow, QueryColumn, QueryStrings, QueryScalar, QueryInt64 and
// Execute run a statement through any dialect.ExecQuerier and return plain
// Go values:
//
//	rows, err := sql.QueryAll(ctx, drv, "PRAGMA table_info(`users`)")
//	for _, r := range rows {
//	    fmt.Println(r.String("name"), r.Bool("notnull"))
//	}
//
// QuoteValue renders a Go value as a literal of a dialect.
//
// # Errors
//
// IsUndefinedTable, IsUndefinedObject and the constraint checks classify
// driver errors of go-sql-driver/mysql, lib/pq, pgx, go-mssqldb,
// modernc.org/sqlite and Oracle drivers.
//
// # Statistics
//
// StatsDriver counts statements and flags slow ones, DebugDriver logs every
// statement, and StatsCollector exports the counters to Prometheus:
//
//	drv, stats, err := sql.OpenWithStats("mysql", dsn, sql.WithSlowQueryLog())
//	prometheus.MustRegister(sql.NewStatsCollector(stats, "app", nil))
package sql
