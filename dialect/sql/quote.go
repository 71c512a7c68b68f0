package sql

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/schemakit/dialect"
)

// escapeStringValue escapes a string value for safe use in a SQL literal.
// Single quotes are doubled for every dialect; MySQL additionally treats
// backslash as an escape character.
func escapeStringValue(dialectName, s string) string {
	if dialectName == dialect.MySQL && strings.Contains(s, `\`) {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	if strings.Contains(s, "'") {
		s = strings.ReplaceAll(s, "'", "''")
	}
	return s
}

// QuoteValue renders v as a SQL literal of the given dialect. It is used
// where values must be inlined into statement text, e.g. composite key IN
// conditions. Unknown types are formatted with %v and quoted as strings.
func QuoteValue(dialectName string, v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + escapeStringValue(dialectName, v) + "'"
	case []byte:
		return quoteBytes(dialectName, v)
	case bool:
		if dialectName == dialect.Postgres {
			if v {
				return "TRUE"
			}
			return "FALSE"
		}
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05.999999") + "'"
	case fmt.Stringer:
		return "'" + escapeStringValue(dialectName, v.String()) + "'"
	default:
		return "'" + escapeStringValue(dialectName, fmt.Sprint(v)) + "'"
	}
}

// quoteBytes renders a binary literal.
func quoteBytes(dialectName string, b []byte) string {
	h := hex.EncodeToString(b)
	switch dialectName {
	case dialect.Postgres:
		return `'\x` + h + `'::bytea`
	case dialect.MSSQL:
		return "0x" + h
	case dialect.Oracle:
		return "HEXTORAW('" + h + "')"
	default:
		return "X'" + h + "'"
	}
}
