package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/syssam/schemakit"
	"github.com/syssam/schemakit/cache"
	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
	"github.com/syssam/schemakit/dialect/sql/schema"
	"github.com/syssam/schemakit/internal/config"
)

// errUsage is returned for invalid command lines after printing usage.
var errUsage = errors.New("invalid usage")

// env is the state shared by the commands.
type env struct {
	cfg    *config.Config
	cat    *schema.Catalog
	drv    dialect.Driver
	stats  *sql.QueryStats
	logger *slog.Logger
	out    io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"tables", "tables [schema]", runTables},
	{"describe", "describe <table>", runDescribe},
	{"ddl", "ddl <table>", runDDL},
	{"find", "find [-select s] [-where cond] [-param k=v] [-order o] [-limit n] [-offset n] [-exec] <table>", runFind},
	{"count", "count [-where cond] [-param k=v] [-distinct] <table>", runCount},
	{"validate", "validate [schema]", runValidate},
	{"atlas", "atlas [schema]", runAtlas},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet("schemakit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		flagConfig  = fs.String("config", "", "path of the YAML configuration file")
		flagDialect = fs.String("dialect", "", "database dialect: mysql|postgres|sqlite|sqlserver|oracle")
		flagDSN     = fs.String("dsn", "", "data source name, overrides the configuration and "+config.EnvDSN)
		flagLevel   = fs.String("log-level", "", "log level: debug|info|warn|error")
		flagStats   = fs.Bool("stats", false, "print query statistics on exit")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: schemakit [flags] <command> [arguments]")
		fmt.Fprintln(stderr, "\ncommands:")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %s\n", c.usage)
		}
		fmt.Fprintln(stderr, "\nflags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	cfg, err := config.Load(*flagConfig,
		config.WithDialect(*flagDialect),
		config.WithDSN(*flagDSN),
		config.WithLogLevel(*flagLevel),
	)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	e, closeEnv, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeEnv(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	e.out = stdout
	if err := cmd.run(ctx, e, fs.Args()[1:]); err != nil {
		return fmt.Errorf("%s: %w", cmd.name, err)
	}
	if *flagStats && e.stats != nil {
		return printStats(stderr, e.stats)
	}
	return nil
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// open connects to the database and the optional shared cache.
func open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*env, func() error, error) {
	base, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	closers := []func() error{base.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	e := &env{cfg: cfg, logger: logger}
	if logger.Enabled(ctx, slog.LevelDebug) {
		e.drv = sql.NewDebugDriver(base, sql.DebugWithLogger(logger))
	} else {
		sd := sql.NewStatsDriver(base,
			sql.WithSlowThreshold(cfg.SlowThreshold),
			sql.WithSlowQueryLogger(logger),
		)
		e.drv, e.stats = sd, sd.QueryStats()
	}

	opts := []schema.Option{
		schema.WithTablePrefix(cfg.TablePrefix),
		schema.WithLogger(logger),
		schema.WithConnectionID(cfg.ConnectionID()),
	}
	if cfg.Schema != "" {
		opts = append(opts, schema.WithDefaultSchema(cfg.Schema))
	}
	if cfg.Username != "" {
		opts = append(opts, schema.WithUsername(cfg.Username))
	}
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		closers = append(closers, rc.Close)
		opts = append(opts, schema.WithCache(rc), schema.WithCacheTTL(cfg.Cache.TTL))
	}
	cat, err := schema.NewCatalog(e.drv, opts...)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	e.cat = cat
	return e, closeAll, nil
}

// printStats exports the query statistics through the Prometheus
// collector and prints the gathered values.
func printStats(w io.Writer, stats *sql.QueryStats) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(sql.NewStatsCollector(stats, "schemakit", nil)); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				v = g.GetValue()
			}
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(w, "%s %g\n", name, v)
		}
	}
	return nil
}

// mustTable loads a table and reports missing tables as errors.
func mustTable(ctx context.Context, e *env, name string) (*schema.Table, error) {
	t, err := e.cat.MustTable(ctx, name)
	if schemakit.IsNotFound(err) {
		return nil, fmt.Errorf("table %s does not exist", name)
	}
	return t, err
}
