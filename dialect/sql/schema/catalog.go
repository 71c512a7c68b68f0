package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/schemakit"
	"github.com/syssam/schemakit/dialect"
	"github.com/syssam/schemakit/dialect/sql"
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithTablePrefix sets the prefix substituted for {{name}} table names.
func WithTablePrefix(prefix string) Option {
	return func(c *Catalog) {
		c.prefix = prefix
	}
}

// WithDefaultSchema sets the schema unqualified names resolve to, instead
// of the dialect default (public, dbo or the connection user).
func WithDefaultSchema(schema string) Option {
	return func(c *Catalog) {
		c.defaultSchema = schema
	}
}

// WithUsername sets the connection user. Oracle uses it, upper-cased, as
// the default schema instead of querying it.
func WithUsername(username string) Option {
	return func(c *Catalog) {
		c.username = username
	}
}

// WithCache enables a second cache level shared between processes.
func WithCache(cache schemakit.Cache) Option {
	return func(c *Catalog) {
		c.shared = cache
	}
}

// WithCacheTTL sets the lifetime of entries of the shared cache.
// Zero, the default, keeps them until invalidated.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Catalog) {
		c.ttl = ttl
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithConcurrency bounds the number of tables Tables loads at once.
// Default is 4.
func WithConcurrency(n int) Option {
	return func(c *Catalog) {
		c.concurrency = n
	}
}

// WithConnectionID sets the identity of the database, such as its DSN
// without credentials. Catalogs share cached entries only when dialect,
// identity, default schema and prefix are equal.
func WithConnectionID(id string) Option {
	return func(c *Catalog) {
		c.connID = id
	}
}

// Catalog loads and caches the table descriptors of one database. Loaded
// descriptors, including the absence of a table, are kept until Refresh
// or InvalidateAll is called. A Catalog is safe for concurrent use.
type Catalog struct {
	drv         dialect.Driver
	d           *Dialect
	builder     *CommandBuilder
	prefix      string
	username    string
	shared      schemakit.Cache
	ttl         time.Duration
	logger      *slog.Logger
	concurrency int
	connID      string

	mu            sync.RWMutex
	defaultSchema string
	schemaLoaded  bool
	tables        map[string]*Table // nil value for absent tables
	names         map[string][]string
	cache         *tableCache
	group         singleflight.Group
}

// NewCatalog returns a catalog reading metadata through drv.
//
// Example:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	if err != nil {
//	    return err
//	}
//	cat, err := schema.NewCatalog(drv, schema.WithTablePrefix("app_"))
func NewCatalog(drv dialect.Driver, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		drv:         drv,
		logger:      slog.Default(),
		concurrency: 4,
		tables:      make(map[string]*Table),
		names:       make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	d, err := newDialect(dialect.Normalize(drv.Dialect()), c.username)
	if err != nil {
		return nil, err
	}
	c.d = d
	c.builder = NewCommandBuilder(d)
	if c.defaultSchema != "" {
		c.schemaLoaded = true
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c, nil
}

// Dialect returns the dialect components of the catalog.
func (c *Catalog) Dialect() *Dialect { return c.d }

// Driver returns the driver the catalog reads metadata through.
func (c *Catalog) Driver() dialect.Driver { return c.drv }

// CommandBuilder returns the command builder of the catalog's dialect.
func (c *Catalog) CommandBuilder() *CommandBuilder { return c.builder }

// DefaultSchema returns the schema unqualified names resolve to.
func (c *Catalog) DefaultSchema(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.schemaLoaded {
		defer c.mu.RUnlock()
		return c.defaultSchema, nil
	}
	c.mu.RUnlock()
	s, err := c.d.DefaultSchema(introspect(ctx), c.drv)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.schemaLoaded {
		c.defaultSchema, c.schemaLoaded = s, true
	}
	return c.defaultSchema, nil
}

var prefixRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// ExpandTableName replaces {{name}} with the prefixed table name.
func (c *Catalog) ExpandTableName(name string) string {
	return prefixRe.ReplaceAllString(name, regexp.QuoteMeta(c.prefix)+"$1")
}

// Table returns the descriptor of the named table. The name may be
// schema-qualified and may use the {{name}} prefix form. A table that
// does not exist yields nil and no error; its absence is cached as well.
func (c *Catalog) Table(ctx context.Context, name string) (*Table, error) {
	name = c.ExpandTableName(name)
	c.mu.RLock()
	t, ok := c.tables[name]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}
	v, err, _ := c.group.Do(name, func() (any, error) {
		c.mu.RLock()
		t, ok := c.tables[name]
		c.mu.RUnlock()
		if ok {
			return t, nil
		}
		t, err := c.load(ctx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[name] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// MustTable is like Table but returns a NotFoundError for a missing table.
func (c *Catalog) MustTable(ctx context.Context, name string) (*Table, error) {
	t, err := c.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, schemakit.NewNotFoundError(c.ExpandTableName(name))
	}
	return t, nil
}

// load reads a table from the shared cache or the database.
func (c *Catalog) load(ctx context.Context, name string) (*Table, error) {
	ds, err := c.DefaultSchema(ctx)
	if err != nil {
		return nil, err
	}
	cache := c.sharedCache(ds)
	if cache != nil {
		t, found, err := cache.get(ctx, name)
		switch {
		case err != nil:
			c.logger.WarnContext(ctx, "schema cache read failed", "table", name, "error", err)
		case found:
			c.logger.DebugContext(ctx, "schema cache hit", "table", name, "absent", t == nil)
			return t, nil
		default:
			c.logger.DebugContext(ctx, "schema cache miss", "table", name)
		}
	}
	t := NewTable("")
	c.d.ResolveTableNames(t, name, ds)
	ok, err := c.d.LoadTable(introspect(ctx), c.drv, t, ds)
	if err != nil {
		c.logger.WarnContext(ctx, "loading table metadata failed", "table", name, "error", err)
		return nil, err
	}
	if !ok {
		c.logger.DebugContext(ctx, "table not found", "table", name)
		t = nil
	} else {
		c.logger.DebugContext(ctx, "table loaded", "table", name, "columns", len(t.ColumnNames))
	}
	if cache != nil {
		if err := cache.set(ctx, name, t); err != nil {
			c.logger.WarnContext(ctx, "schema cache write failed", "table", name, "error", err)
		}
	}
	return t, nil
}

// introspect marks the statements run under ctx as metadata reads.
func introspect(ctx context.Context) context.Context {
	return sql.WithOrigin(ctx, sql.OriginIntrospection)
}

func (c *Catalog) sharedCache(defaultSchema string) *tableCache {
	if c.shared == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache == nil {
		c.cache = &tableCache{
			cache:     c.shared,
			ttl:       c.ttl,
			dialect:   c.d.Name,
			namespace: cacheNamespace(c.d.Name, c.connID, defaultSchema, c.prefix),
		}
	}
	return c.cache
}

// Refresh drops the cached descriptor of a table, so that the next call
// to Table reloads it.
func (c *Catalog) Refresh(ctx context.Context, name string) error {
	name = c.ExpandTableName(name)
	c.mu.Lock()
	delete(c.tables, name)
	c.mu.Unlock()
	c.group.Forget(name)
	cache, err := c.resolvedCache(ctx)
	if err != nil || cache == nil {
		return err
	}
	return cache.delete(ctx, name)
}

// InvalidateAll drops every cached descriptor and table name list.
func (c *Catalog) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	for name := range c.tables {
		c.group.Forget(name)
	}
	c.tables = make(map[string]*Table)
	c.names = make(map[string][]string)
	c.mu.Unlock()
	cache, err := c.resolvedCache(ctx)
	if err != nil || cache == nil {
		return err
	}
	return cache.clear(ctx)
}

// resolvedCache returns the shared cache level, resolving the default
// schema its namespace depends on. Entries written by other catalogs are
// reachable even before this one loaded a table.
func (c *Catalog) resolvedCache(ctx context.Context) (*tableCache, error) {
	if c.shared == nil {
		return nil, nil
	}
	ds, err := c.DefaultSchema(ctx)
	if err != nil {
		return nil, err
	}
	return c.sharedCache(ds), nil
}

// TableNames returns the table names of a schema, the default one when
// schema is empty. The list is cached until InvalidateAll.
func (c *Catalog) TableNames(ctx context.Context, schema string) ([]string, error) {
	c.mu.RLock()
	names, ok := c.names[schema]
	c.mu.RUnlock()
	if ok {
		return append([]string(nil), names...), nil
	}
	names, err := c.FindTableNames(ctx, schema)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.names[schema] = names
	c.mu.Unlock()
	return append([]string(nil), names...), nil
}

// FindTableNames queries the table names of a schema, bypassing the cache.
// Names of a non-default schema are schema-qualified.
func (c *Catalog) FindTableNames(ctx context.Context, schema string) ([]string, error) {
	ds, err := c.DefaultSchema(ctx)
	if err != nil {
		return nil, err
	}
	return c.d.FindTableNames(introspect(ctx), c.drv, schema, ds)
}

// Tables loads every table of a schema.
func (c *Catalog) Tables(ctx context.Context, schema string) ([]*Table, error) {
	names, err := c.TableNames(ctx, schema)
	if err != nil {
		return nil, err
	}
	tables := make([]*Table, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, name := range names {
		g.Go(func() error {
			t, err := c.Table(ctx, name)
			if err != nil {
				return fmt.Errorf("table %q: %w", name, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	loaded := tables[:0]
	for _, t := range tables {
		// dropped between listing and loading
		if t != nil {
			loaded = append(loaded, t)
		}
	}
	return loaded, nil
}

// CheckIntegrity enables or disables foreign key checking for the tables
// of a schema. MySQL and SQLite scope the setting to the connection that
// runs it, which a pooled driver picks at random; use WithoutIntegrity or
// CheckSessionIntegrity there.
func (c *Catalog) CheckIntegrity(ctx context.Context, check bool, schema string) error {
	return c.CheckSessionIntegrity(ctx, c.drv, check, schema)
}

// CheckSessionIntegrity is like CheckIntegrity but runs through ex, such
// as a pinned sql.Session.
func (c *Catalog) CheckSessionIntegrity(ctx context.Context, ex dialect.ExecQuerier, check bool, schema string) error {
	ds, err := c.DefaultSchema(ctx)
	if err != nil {
		return err
	}
	return c.d.CheckIntegrity(ctx, ex, check, schema, ds)
}

// sessionDriver is implemented by drivers able to pin a pooled connection.
type sessionDriver interface {
	Session(ctx context.Context) (*sql.Session, error)
}

// WithoutIntegrity runs fn with foreign key checking disabled for the
// tables of a schema, and enables it again once fn returns. When the
// driver can pin a connection, fn receives it and must run its statements
// through it. SQLite ignores the setting inside a transaction.
func (c *Catalog) WithoutIntegrity(ctx context.Context, schema string, fn func(ex dialect.ExecQuerier) error) (err error) {
	var ex dialect.ExecQuerier = c.drv
	if p, ok := c.drv.(sessionDriver); ok {
		s, serr := p.Session(ctx)
		if serr != nil {
			return serr
		}
		defer func() { err = errors.Join(err, s.Close()) }()
		ex = s
	}
	if err := c.CheckSessionIntegrity(ctx, ex, false, schema); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.CheckSessionIntegrity(ctx, ex, true, schema))
	}()
	return fn(ex)
}

// ResetSequence makes value the next generated key of the table, or
// max(key)+1 when value is nil. Tables without sequence are left alone.
func (c *Catalog) ResetSequence(ctx context.Context, t *Table, value *int64) error {
	if t == nil {
		return errNilTable
	}
	return c.d.ResetSequence(ctx, c.drv, t, value)
}

// RenameColumn renders the statement renaming a column. MySQL reads the
// current column definition to keep it.
func (c *Catalog) RenameColumn(ctx context.Context, table, name, newName string) (string, error) {
	return c.d.RenameColumn(introspect(ctx), c.drv, c.ExpandTableName(table), name, newName)
}

// CompareTableNames reports whether two table names refer to the same
// table, ignoring quoting, schema qualification and, for dialects with
// case-insensitive names, case.
func (c *Catalog) CompareTableNames(a, b string) bool {
	return c.normalizeName(a) == c.normalizeName(b)
}

func (c *Catalog) normalizeName(name string) string {
	return c.d.FoldName(lastSegment(c.ExpandTableName(name)))
}

// Drift compares the cached descriptor of a table with a fresh load and
// reports the differences. The cache is left untouched.
func (c *Catalog) Drift(ctx context.Context, name string, opts ...ValidateOption) (*ValidationResult, error) {
	cached, err := c.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	ds, err := c.DefaultSchema(ctx)
	if err != nil {
		return nil, err
	}
	fresh := NewTable("")
	c.d.ResolveTableNames(fresh, c.ExpandTableName(name), ds)
	ok, err := c.d.LoadTable(introspect(ctx), c.drv, fresh, ds)
	if err != nil {
		return nil, err
	}
	var current, desired []*Table
	if cached != nil {
		current = append(current, cached)
	}
	if ok {
		desired = append(desired, fresh)
	}
	return ValidateDiff(current, desired, opts...), nil
}
