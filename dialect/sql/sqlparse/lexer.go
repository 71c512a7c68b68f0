package sqlparse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind int

// Token kinds.
const (
	Space   Kind = iota // whitespace
	Comment             // -- line or /* block */ comment
	Word                // keyword or bare identifier
	Number              // numeric literal
	String              // 'quoted' literal
	Ident               // "quoted", `quoted` or [quoted] identifier
	Param               // :name placeholder
	Punct               // operators, commas, parentheses
)

func (k Kind) String() string {
	switch k {
	case Space:
		return "space"
	case Comment:
		return "comment"
	case Word:
		return "word"
	case Number:
		return "number"
	case String:
		return "string"
	case Ident:
		return "ident"
	case Param:
		return "param"
	case Punct:
		return "punct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Token is one lexical element of a statement. Pos and End are byte
// offsets into the source; Depth is the parenthesis nesting level the
// token appears at (an opening parenthesis has the outer depth).
type Token struct {
	Kind  Kind
	Text  string
	Pos   int
	End   int
	Depth int
}

// Is reports whether the token is the given keyword (case-insensitive).
func (t Token) Is(keyword string) bool {
	return t.Kind == Word && strings.EqualFold(t.Text, keyword)
}

// Name returns the placeholder name of a Param token without the colon.
func (t Token) Name() string {
	if t.Kind != Param {
		return ""
	}
	return t.Text[1:]
}

// SyntaxError reports a statement the lexer cannot tokenize.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sqlparse: %s at offset %d", e.Msg, e.Pos)
}

// Option configures the lexer.
type Option func(*lexConfig)

type lexConfig struct {
	backslash bool
}

// BackslashEscapes makes a backslash escape the next character of quoted
// literals, as MySQL does unless NO_BACKSLASH_ESCAPES is set. Backquoted
// identifiers are not affected.
func BackslashEscapes() Option {
	return func(c *lexConfig) {
		c.backslash = true
	}
}

// Tokenize splits a statement into tokens. Quoted literals and
// identifiers, comments and placeholders are recognized; everything else
// is a word, number or punctuation. Unterminated quotes or comments and
// unbalanced parentheses are reported as *SyntaxError.
func Tokenize(sql string, opts ...Option) ([]Token, error) {
	var (
		toks  []Token
		depth int
		cfg   lexConfig
	)
	for _, opt := range opts {
		opt(&cfg)
	}
	for i := 0; i < len(sql); {
		start := i
		c := sql[i]
		kind := Punct
		switch {
		case isSpace(c):
			for i < len(sql) && isSpace(sql[i]) {
				i++
			}
			kind = Space
		case c == '-' && strings.HasPrefix(sql[i:], "--"):
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			kind = Comment
		case c == '/' && strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Msg: "unterminated comment"}
			}
			i += end + 4
			kind = Comment
		case c == '\'':
			n, err := quoted(sql, i, '\'', cfg.backslash)
			if err != nil {
				return nil, err
			}
			i, kind = n, String
		case c == '"' || c == '`':
			n, err := quoted(sql, i, c, cfg.backslash && c == '"')
			if err != nil {
				return nil, err
			}
			i, kind = n, Ident
		case c == '[':
			end := strings.IndexByte(sql[i:], ']')
			if end < 0 {
				return nil, &SyntaxError{Pos: i, Msg: "unterminated identifier"}
			}
			i += end + 1
			kind = Ident
		case c == ':' && i+1 < len(sql) && sql[i+1] == ':':
			i += 2
		case c == ':' && i+1 < len(sql) && isIdentStart(sql[i+1:]) && !(i > 0 && sql[i-1] == ':'):
			i++
			for i < len(sql) && isIdentPart(sql[i:]) {
				_, w := utf8.DecodeRuneInString(sql[i:])
				i += w
			}
			kind = Param
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9':
			for i < len(sql) && (sql[i] >= '0' && sql[i] <= '9' || sql[i] == '.' || sql[i] == 'e' || sql[i] == 'E') {
				i++
			}
			kind = Number
		case isIdentStart(sql[i:]) || c == '@' || c == '#' || c == '$':
			i++
			for i < len(sql) && (isIdentPart(sql[i:]) || sql[i] == '$' || sql[i] == '#' || sql[i] == '@') {
				_, w := utf8.DecodeRuneInString(sql[i:])
				i += w
			}
			kind = Word
		case c == '(':
			toks = append(toks, Token{Kind: Punct, Text: "(", Pos: i, End: i + 1, Depth: depth})
			depth++
			i++
			continue
		case c == ')':
			depth--
			if depth < 0 {
				return nil, &SyntaxError{Pos: i, Msg: "unbalanced parenthesis"}
			}
			i++
		case strings.HasPrefix(sql[i:], "<=") || strings.HasPrefix(sql[i:], ">=") ||
			strings.HasPrefix(sql[i:], "<>") || strings.HasPrefix(sql[i:], "!=") ||
			strings.HasPrefix(sql[i:], "||"):
			i += 2
		default:
			_, w := utf8.DecodeRuneInString(sql[i:])
			i += w
		}
		toks = append(toks, Token{Kind: kind, Text: sql[start:i], Pos: start, End: i, Depth: depth})
	}
	if depth != 0 {
		return nil, &SyntaxError{Pos: len(sql), Msg: "unbalanced parenthesis"}
	}
	return toks, nil
}

// quoted scans a literal or identifier quoted with q, where a doubled
// quote escapes it, and so does a backslash when backslash is set. It
// returns the offset after the closing quote.
func quoted(sql string, i int, q byte, backslash bool) (int, error) {
	for j := i + 1; j < len(sql); j++ {
		if backslash && sql[j] == '\\' {
			j++
			continue
		}
		if sql[j] != q {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == q {
			j++
			continue
		}
		return j + 1, nil
	}
	return 0, &SyntaxError{Pos: i, Msg: "unterminated quote"}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdentStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// significant drops whitespace and comments.
func significant(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != Space && t.Kind != Comment {
			out = append(out, t)
		}
	}
	return out
}
