package schema

import (
	"fmt"
	"strconv"
	"strings"

	atlas "ariga.io/atlas/sql/schema"
)

// ToAtlas converts loaded tables into an Atlas schema, for use with the
// Atlas diffing and migration planning tools. Foreign keys referencing
// tables outside the set are dropped.
func ToAtlas(name string, tables []*Table) (*atlas.Schema, error) {
	s := atlas.New(name)
	byName := make(map[string]*atlas.Table, len(tables))
	for _, t := range tables {
		if t == nil {
			continue
		}
		at, err := atlasTable(t)
		if err != nil {
			return nil, err
		}
		s.AddTables(at)
		byName[t.Name] = at
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		at := byName[t.Name]
		for _, col := range t.ColumnNames {
			fk, ok := t.ForeignKeys[col]
			if !ok {
				continue
			}
			ref, ok := byName[lastSegment(fk.RefTable)]
			if !ok {
				continue
			}
			c, ok1 := at.Column(col)
			rc, ok2 := ref.Column(fk.RefColumn)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("schema: foreign key %s.%s references unknown column %s.%s", t.Name, col, fk.RefTable, fk.RefColumn)
			}
			at.AddForeignKeys(atlas.NewForeignKey(fmt.Sprintf("fk_%s_%s", t.Name, col)).
				AddColumns(c).
				SetRefTable(ref).
				AddRefColumns(rc))
		}
	}
	return s, nil
}

func atlasTable(t *Table) (*atlas.Table, error) {
	at := atlas.NewTable(t.Name)
	for _, c := range t.OrderedColumns() {
		at.AddColumns(atlasColumn(c))
	}
	if len(t.PrimaryKey) > 0 {
		pk := make([]*atlas.Column, 0, len(t.PrimaryKey))
		for _, name := range t.PrimaryKey {
			c, ok := at.Column(name)
			if !ok {
				return nil, fmt.Errorf("schema: primary key column %s.%s not found", t.Name, name)
			}
			pk = append(pk, c)
		}
		at.SetPrimaryKey(atlas.NewPrimaryKey(pk...))
	}
	return at, nil
}

func atlasColumn(c *Column) *atlas.Column {
	var ac *atlas.Column
	switch c.Type {
	case TypeInteger:
		ac = atlas.NewIntColumn(c.Name, c.DBType)
	case TypeDouble:
		ac = atlas.NewFloatColumn(c.Name, c.DBType)
	case TypeBoolean:
		ac = atlas.NewBoolColumn(c.Name, c.DBType)
	case TypeBinary:
		ac = atlas.NewBinaryColumn(c.Name, c.DBType)
	case TypeString:
		if c.Size != nil {
			ac = atlas.NewStringColumn(c.Name, c.DBType, atlas.StringSize(*c.Size))
		} else {
			ac = atlas.NewStringColumn(c.Name, c.DBType)
		}
	default:
		ac = atlas.NewColumn(c.Name).SetType(&atlas.UnsupportedType{T: c.DBType})
	}
	ac.Type.Raw = c.DBType
	ac.SetNull(c.AllowNull)
	if c.Default != nil {
		ac.SetDefault(&atlas.Literal{V: atlasLiteral(c.Default)})
	}
	if c.Comment != "" {
		ac.SetComment(c.Comment)
	}
	return ac
}

func atlasLiteral(v any) string {
	switch v := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
