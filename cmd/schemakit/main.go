// schemakit inspects database schemas and prints the statements the
// command builder synthesizes for them.
//
// Usage:
//
//	schemakit [flags] <command> [arguments]
//
// Commands:
//
//	tables [schema]          list the tables of a schema
//	describe <table>         print the loaded table descriptor as JSON
//	ddl <table>              print a CREATE TABLE statement for the table
//	find [flags] <table>     build (and with -exec run) a SELECT statement
//	count [flags] <table>    count the rows matching a condition
//	validate [schema]        check the loaded descriptors for inconsistencies
//	atlas [schema]           print the schema as converted for Atlas
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "schemakit: %v\n", err)
		stop()
		os.Exit(1)
	}
}
