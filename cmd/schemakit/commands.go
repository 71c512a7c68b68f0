package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/syssam/schemakit/dialect/sql/schema"
)

func runTables(ctx context.Context, e *env, args []string) error {
	names, err := e.cat.TableNames(ctx, optionalArg(args))
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(e.out, name)
	}
	return nil
}

// columnJSON is the printed form of a column.
type columnJSON struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	DBType        string `json:"db_type"`
	Size          *int   `json:"size,omitempty"`
	Precision     *int   `json:"precision,omitempty"`
	Scale         *int   `json:"scale,omitempty"`
	AllowNull     bool   `json:"allow_null"`
	PrimaryKey    bool   `json:"primary_key,omitempty"`
	ForeignKey    bool   `json:"foreign_key,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty"`
	Default       any    `json:"default,omitempty"`
	Comment       string `json:"comment,omitempty"`
}

// tableJSON is the printed form of a table.
type tableJSON struct {
	Name         string                       `json:"name"`
	Schema       string                       `json:"schema,omitempty"`
	RawName      string                       `json:"raw_name"`
	PrimaryKey   []string                     `json:"primary_key,omitempty"`
	SequenceName *string                      `json:"sequence_name,omitempty"`
	Columns      []columnJSON                 `json:"columns"`
	ForeignKeys  map[string]schema.ForeignKey `json:"foreign_keys,omitempty"`
}

func newTableJSON(t *schema.Table) tableJSON {
	tj := tableJSON{
		Name:         t.Name,
		Schema:       t.Schema,
		RawName:      t.RawName,
		PrimaryKey:   t.PrimaryKey,
		SequenceName: t.SequenceName,
		ForeignKeys:  t.ForeignKeys,
	}
	for _, c := range t.OrderedColumns() {
		d := c.Default
		if b, ok := d.([]byte); ok {
			d = string(b)
		}
		tj.Columns = append(tj.Columns, columnJSON{
			Name:          c.Name,
			Type:          c.Type.String(),
			DBType:        c.DBType,
			Size:          c.Size,
			Precision:     c.Precision,
			Scale:         c.Scale,
			AllowNull:     c.AllowNull,
			PrimaryKey:    c.IsPrimaryKey,
			ForeignKey:    c.IsForeignKey,
			AutoIncrement: c.AutoIncrement,
			Default:       d,
			Comment:       c.Comment,
		})
	}
	return tj
}

func runDescribe(ctx context.Context, e *env, args []string) error {
	name, err := requiredArg(args, "table")
	if err != nil {
		return err
	}
	t, err := mustTable(ctx, e, name)
	if err != nil {
		return err
	}
	return writeJSON(e.out, newTableJSON(t))
}

func runDDL(ctx context.Context, e *env, args []string) error {
	name, err := requiredArg(args, "table")
	if err != nil {
		return err
	}
	t, err := mustTable(ctx, e, name)
	if err != nil {
		return err
	}
	stmt, err := e.cat.Dialect().TableDDL(t)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, stmt+";")
	return nil
}

// params collects repeated -param name=value flags.
type params map[string]any

func (p params) String() string {
	pairs := make([]string, 0, len(p))
	for k, v := range p {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(pairs, ",")
}

func (p params) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("param %q: want name=value", s)
	}
	p[strings.TrimPrefix(k, ":")] = v
	return nil
}

// criteriaFlags are the flags shared by find and count.
type criteriaFlags struct {
	fs       *flag.FlagSet
	where    *string
	params   params
	distinct *bool
}

func newCriteriaFlags(name string, out io.Writer) *criteriaFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	f := &criteriaFlags{
		fs:       fs,
		where:    fs.String("where", "", "condition, with :name placeholders"),
		distinct: fs.Bool("distinct", false, "select distinct rows"),
		params:   params{},
	}
	fs.Var(f.params, "param", "placeholder value as name=value, repeatable")
	return f
}

func (f *criteriaFlags) criteria() *schema.Criteria {
	c := schema.NewCriteria().MergeParams(f.params)
	if *f.where != "" {
		c.Where(*f.where)
	}
	if *f.distinct {
		c.WithDistinct()
	}
	return c
}

func runFind(ctx context.Context, e *env, args []string) error {
	f := newCriteriaFlags("find", e.out)
	var (
		sel    = f.fs.String("select", "", "select list, default *")
		order  = f.fs.String("order", "", "ORDER BY clause")
		limit  = f.fs.Int("limit", 0, "maximum number of rows")
		offset = f.fs.Int("offset", 0, "number of rows to skip")
		exec   = f.fs.Bool("exec", false, "run the statement and print the rows as JSON")
	)
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	name, err := requiredArg(f.fs.Args(), "table")
	if err != nil {
		return err
	}
	t, err := mustTable(ctx, e, name)
	if err != nil {
		return err
	}
	c := f.criteria().OrderBy(*order).WithLimit(*limit).WithOffset(*offset)
	if *sel != "" {
		c.WithSelect(*sel)
	}
	stmt, err := e.cat.CommandBuilder().Find(t, c)
	if err != nil {
		return err
	}
	if !*exec {
		return printStatement(e.out, stmt)
	}
	rows, err := stmt.QueryAll(ctx, e.drv)
	if err != nil {
		return err
	}
	return writeJSON(e.out, rows)
}

func runCount(ctx context.Context, e *env, args []string) error {
	f := newCriteriaFlags("count", e.out)
	if err := f.fs.Parse(args); err != nil {
		return err
	}
	name, err := requiredArg(f.fs.Args(), "table")
	if err != nil {
		return err
	}
	t, err := mustTable(ctx, e, name)
	if err != nil {
		return err
	}
	stmt, err := e.cat.CommandBuilder().Count(t, f.criteria())
	if err != nil {
		return err
	}
	n, err := stmt.QueryScalar(ctx, e.drv)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, n)
	return nil
}

func runValidate(ctx context.Context, e *env, args []string) error {
	tables, err := e.cat.Tables(ctx, optionalArg(args))
	if err != nil {
		return err
	}
	result := schema.ValidateSchema(tables)
	fmt.Fprintln(e.out, result.String())
	if result.HasErrors() {
		return errors.New("schema has errors")
	}
	return nil
}

// atlasTableJSON is the printed form of an Atlas table.
type atlasTableJSON struct {
	Name        string            `json:"name"`
	Columns     map[string]string `json:"columns"`
	PrimaryKey  []string          `json:"primary_key,omitempty"`
	ForeignKeys []string          `json:"foreign_keys,omitempty"`
}

func runAtlas(ctx context.Context, e *env, args []string) error {
	name := optionalArg(args)
	tables, err := e.cat.Tables(ctx, name)
	if err != nil {
		return err
	}
	s, err := schema.ToAtlas(name, tables)
	if err != nil {
		return err
	}
	out := make([]atlasTableJSON, 0, len(s.Tables))
	for _, t := range s.Tables {
		tj := atlasTableJSON{Name: t.Name, Columns: make(map[string]string, len(t.Columns))}
		for _, c := range t.Columns {
			tj.Columns[c.Name] = c.Type.Raw
		}
		if t.PrimaryKey != nil {
			for _, p := range t.PrimaryKey.Parts {
				tj.PrimaryKey = append(tj.PrimaryKey, p.C.Name)
			}
		}
		for _, fk := range t.ForeignKeys {
			tj.ForeignKeys = append(tj.ForeignKeys, fk.Symbol+" -> "+fk.RefTable.Name)
		}
		out = append(out, tj)
	}
	return writeJSON(e.out, out)
}

func printStatement(w io.Writer, stmt *schema.Statement) error {
	query, args, err := stmt.Bind()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, query)
	for i, a := range args {
		fmt.Fprintf(w, "  $%d = %v\n", i+1, a)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func requiredArg(args []string, what string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("missing %s argument: %w", what, errUsage)
	}
	return args[0], nil
}
