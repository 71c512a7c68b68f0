package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Type is the dialect-neutral classification of a column.
type Type uint8

// Abstract column types.
const (
	TypeUnspecified Type = iota
	TypeString
	TypeInteger
	TypeDouble
	TypeBoolean
	TypeBinary
)

var typeNames = [...]string{
	TypeUnspecified: "unspecified",
	TypeString:      "string",
	TypeInteger:     "integer",
	TypeDouble:      "double",
	TypeBoolean:     "boolean",
	TypeBinary:      "binary",
}

// String returns the name of the type.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Column describes one column of a loaded table.
type Column struct {
	Name    string // Column name
	RawName string // Quoted name, safe to interpolate
	Type    Type   // Abstract type derived from DBType
	DBType  string // Native type as reported by the database
	// Size, Precision and Scale are nil when the native type carries no limit.
	Size          *int
	Precision     *int
	Scale         *int
	AllowNull     bool
	IsPrimaryKey  bool
	IsForeignKey  bool
	AutoIncrement bool
	// Default is the typecast literal default, nil when the column has no
	// default or the default is a server-side expression.
	Default any
	Comment string
	// BoolAsInt is set for dialects storing booleans as 0/1 integers.
	BoolAsInt bool
}

// HasDefault reports whether the column has a literal default value.
func (c *Column) HasDefault() bool { return c.Default != nil }

// IsUUID reports whether the native type is a UUID type.
func (c *Column) IsUUID() bool {
	t := strings.ToLower(c.DBType)
	return t == "uuid" || t == "uniqueidentifier"
}

// Typecast converts v to the Go representation of the column's abstract
// type. Values that cannot be converted are returned unchanged; nil and
// Expr values are never converted.
func (c *Column) Typecast(v any) any {
	switch v.(type) {
	case nil, Expr, *Expr:
		return v
	}
	if s, ok := v.(string); ok && s == "" && c.AllowNull && c.Type != TypeString {
		return nil
	}
	switch c.Type {
	case TypeString:
		s := toString(v)
		if c.IsUUID() {
			if id, err := uuid.Parse(s); err == nil {
				return id.String()
			}
		}
		return s
	case TypeInteger:
		if n, ok := toInt64(v); ok {
			return n
		}
	case TypeDouble:
		if f, ok := toFloat64(v); ok {
			return f
		}
	case TypeBoolean:
		b := toBool(v)
		if c.BoolAsInt {
			if b {
				return int64(1)
			}
			return int64(0)
		}
		return b
	case TypeBinary:
		switch v := v.(type) {
		case string:
			return []byte(v)
		}
	}
	return v
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return int64(v), true
	case float64:
		return int64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string, []byte:
		s := strings.TrimSpace(toString(v))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			return int64(f), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string, []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(toString(v)), 64)
		return f, err == nil
	}
	if n, ok := toInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

func toBool(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case string, []byte:
		s := strings.TrimSpace(toString(v))
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		switch strings.ToLower(s) {
		case "", "f", "n", "no", "off":
			return false
		}
		return true
	}
	if n, ok := toInt64(v); ok {
		return n != 0
	}
	return true
}

// Base extraction rules, shared by dialects that do not override them.

var (
	doubleRe = regexp.MustCompile(`(?i)(real|floa|doub)`)
	limitRe  = regexp.MustCompile(`\((.*)\)`)
	bitRe    = regexp.MustCompile(`^b'([01]*)'$`)
)

// baseType classifies a native type with the generic rules.
func baseType(dbType string) Type {
	t := strings.ToLower(dbType)
	switch {
	case strings.Contains(t, "int") && !strings.Contains(t, "unsigned int"):
		return TypeInteger
	case strings.Contains(t, "bool"):
		return TypeBoolean
	case doubleRe.MatchString(t):
		return TypeDouble
	case strings.Contains(t, "blob"):
		return TypeBinary
	}
	return TypeString
}

// extractLimit reads "(size)" or "(precision,scale)" from a native type.
func extractLimit(c *Column, dbType string) {
	if !strings.Contains(dbType, "(") {
		return
	}
	m := limitRe.FindStringSubmatch(dbType)
	if m == nil {
		return
	}
	parts := strings.Split(m[1], ",")
	n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return
	}
	c.Size, c.Precision = intp(n), intp(n)
	if len(parts) > 1 {
		if s, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			c.Scale = intp(s)
		}
	}
}

// decodeBitLiteral decodes MySQL b'0101' defaults.
func decodeBitLiteral(s string) (int64, bool) {
	m := bitRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	if m[1] == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(m[1], 2, 64)
	return n, err == nil
}

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }
