package schema

import (
	"strings"

	"golang.org/x/text/cases"
)

// quoter quotes identifiers with a pair of quote characters. Embedded
// closing quotes are doubled.
type quoter struct {
	open, close string
	// fold makes name comparisons case-insensitive.
	fold bool
}

func (q quoter) quoted(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, q.open) && strings.HasSuffix(name, q.close)
}

func (q quoter) quote(name string) string {
	if q.quoted(name) {
		return name
	}
	return q.open + strings.ReplaceAll(name, q.close, q.close+q.close) + q.close
}

func (q quoter) QuoteSimpleTableName(name string) string { return q.quote(name) }

func (q quoter) QuoteSimpleColumnName(name string) string { return q.quote(name) }

func (q quoter) QuoteTableName(name string) string {
	if strings.Contains(name, "(") || strings.Contains(name, "{{") {
		return name
	}
	parts := splitName(name)
	for i, p := range parts {
		parts[i] = q.quote(p)
	}
	return strings.Join(parts, ".")
}

func (q quoter) QuoteColumnName(name string) string {
	parts := splitName(name)
	if len(parts) == 0 {
		return name
	}
	last := parts[len(parts)-1]
	if last != "*" {
		last = q.quote(last)
	}
	if len(parts) == 1 {
		return last
	}
	return q.QuoteTableName(strings.Join(parts[:len(parts)-1], ".")) + "." + last
}

func (q quoter) Unquote(name string) string {
	parts := splitName(name)
	for i, p := range parts {
		parts[i] = unquoteSegment(p)
	}
	return strings.Join(parts, ".")
}

func (q quoter) FoldName(name string) string {
	if q.fold {
		return cases.Fold().String(name)
	}
	return name
}

// unquoteSegment strips any of the supported quote styles.
func unquoteSegment(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '"' && s[len(s)-1] == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case s[0] == '`' && s[len(s)-1] == '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case s[0] == '[' && s[len(s)-1] == ']':
		return strings.ReplaceAll(s[1:len(s)-1], "]]", "]")
	}
	return s
}

// splitName splits a qualified name on dots outside quotes.
func splitName(name string) []string {
	var (
		parts []string
		start int
		close byte
	)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case close != 0:
			if c == close {
				close = 0
			}
		case c == '"' || c == '`':
			close = c
		case c == '[':
			close = ']'
		case c == '.':
			parts = append(parts, name[start:i])
			start = i + 1
		}
	}
	return append(parts, name[start:])
}

// lastSegment returns the unquoted last segment of a qualified name.
func lastSegment(name string) string {
	parts := splitName(name)
	return unquoteSegment(parts[len(parts)-1])
}
