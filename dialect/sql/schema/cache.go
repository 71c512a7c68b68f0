package schema

import (
	"context"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"github.com/syssam/schemakit"
)

// cacheVersion invalidates cached descriptors written by older releases.
const cacheVersion = 1

// cachedTable is the encoded form of a loaded or absent table.
type cachedTable struct {
	Version int    `msgpack:"v"`
	Absent  bool   `msgpack:"absent,omitempty"`
	Table   *Table `msgpack:"table,omitempty"`
}

// tableCache stores table descriptors in a shared schemakit.Cache.
type tableCache struct {
	cache     schemakit.Cache
	ttl       time.Duration
	namespace string
	dialect   string
}

// cacheNamespace hashes the identity of a connection, so that catalogs of
// different databases never share entries.
func cacheNamespace(parts ...string) string {
	h := xxh3.New()
	for _, p := range parts {
		_, _ = h.WriteString(p)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func (c *tableCache) key(name string) schemakit.CacheKey {
	return schemakit.CacheKey{Namespace: c.namespace, Dialect: c.dialect, Table: name}
}

// get returns the cached table. found is false on a cache miss; a found
// nil table is a cached absence.
func (c *tableCache) get(ctx context.Context, name string) (t *Table, found bool, err error) {
	b, err := c.cache.Get(ctx, c.key(name).String())
	if err != nil || b == nil {
		return nil, false, err
	}
	var e cachedTable
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return nil, false, err
	}
	if e.Version != cacheVersion {
		return nil, false, nil
	}
	if e.Absent || e.Table == nil {
		return nil, true, nil
	}
	normalizeDefaults(e.Table)
	return e.Table, true, nil
}

func (c *tableCache) set(ctx context.Context, name string, t *Table) error {
	b, err := msgpack.Marshal(&cachedTable{Version: cacheVersion, Absent: t == nil, Table: t})
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, c.key(name).String(), b, c.ttl)
}

func (c *tableCache) delete(ctx context.Context, name string) error {
	return c.cache.Delete(ctx, c.key(name).String())
}

func (c *tableCache) clear(ctx context.Context) error {
	return c.cache.DeletePrefix(ctx, c.key("").Prefix())
}

// normalizeDefaults restores the Go types of decoded defaults, which
// msgpack widens to the smallest integer encoding.
func normalizeDefaults(t *Table) {
	if t.Columns == nil {
		t.Columns = make(map[string]*Column)
	}
	if t.ForeignKeys == nil {
		t.ForeignKeys = make(map[string]ForeignKey)
	}
	for _, c := range t.Columns {
		if c.Default != nil {
			c.Default = c.Typecast(c.Default)
		}
	}
}
