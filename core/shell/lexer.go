// Package shell parses command lines into blocks the engine can evaluate.
//
// The grammar is small: pipelines separated by newlines or semicolons,
// elements separated by pipes, and nuon-style literals for lists, tables and
// records.
package shell

import (
	"fmt"
	"strings"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	NEWLINE   // "\n" or ";"
	PIPE      // "|"
	CARET     // "^" forcing an external call
	LROUND    // "("
	RROUND    // ")"
	LSQUARE   // "["
	RSQUARE   // "]"
	LCURLY    // "{"
	RCURLY    // "}"
	COLON     // ":"
	COMMA     // ","
	ASSIGN    // "="
	STRING    // quoted string
	BARE      // bare word
	VARIABLE  // $name or $name.path
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "newline"
	case PIPE:
		return "'|'"
	case CARET:
		return "'^'"
	case LROUND:
		return "'('"
	case RROUND:
		return "')'"
	case LSQUARE:
		return "'['"
	case RSQUARE:
		return "']'"
	case LCURLY:
		return "'{'"
	case RCURLY:
		return "'}'"
	case COLON:
		return "':'"
	case COMMA:
		return "','"
	case ASSIGN:
		return "'='"
	case STRING:
		return "string"
	case BARE:
		return "word"
	case VARIABLE:
		return "variable"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Token is a lexical token.
type Token struct {
	Type TokenType
	// Text is the unquoted string, the bare word or the variable path.
	Text string
	// Start and End are byte offsets into the source.
	Start int
	End   int
	// SpaceBefore is set when whitespace precedes the token.
	SpaceBefore bool
}

// Lexer scans a command line into tokens.
type Lexer struct {
	src    string
	start  int
	cur    int
	tokens []Token
	space  bool
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) addToken(tt TokenType, text string) {
	l.tokens = append(l.tokens, Token{
		Type:        tt,
		Text:        text,
		Start:       l.start,
		End:         l.cur,
		SpaceBefore: l.space,
	})
	l.space = false
}

func (l *Lexer) err(msg string) error {
	return newParseError(l.src, l.start, l.cur, msg)
}

// isBareDelimiter reports whether ch ends a bare word.
func isBareDelimiter(ch byte, first byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '|', ';', '(', ')', '[', ']', '{', '}', ',', '"', '\'', '`':
		return true
	case ':':
		// Times and dates keep their colons.
		return !isDigit(first)
	case '=':
		return first != '-'
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isVarChar(b byte) bool {
	return (b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') ||
		b == '_' || b == '-'
}

func (l *Lexer) scanString(quote byte) (string, error) {
	var sb strings.Builder
	for {
		ch, ok := l.peek()
		if !ok {
			return "", l.err("unterminated string")
		}
		l.cur++
		switch {
		case ch == quote:
			return sb.String(), nil
		case ch == '\\' && quote == '"':
			esc, ok := l.peek()
			if !ok {
				return "", l.err("unterminated string")
			}
			l.cur++
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\\', '/':
				sb.WriteByte(esc)
			default:
				return "", l.err(fmt.Sprintf("unknown escape \\%c", esc))
			}
		default:
			sb.WriteByte(ch)
		}
	}
}

func (l *Lexer) scanBare() string {
	first := l.src[l.start]
	for !l.isAtEnd() && !isBareDelimiter(l.src[l.cur], first) {
		l.cur++
	}
	return l.src[l.start:l.cur]
}

func (l *Lexer) scanVariable() (string, error) {
	for !l.isAtEnd() {
		ch := l.src[l.cur]
		if !isVarChar(ch) && ch != '.' {
			break
		}
		l.cur++
	}
	name := l.src[l.start+1 : l.cur]
	if name == "" || strings.HasPrefix(name, ".") {
		return "", l.err("expected a variable name after '$'")
	}
	return name, nil
}

func (l *Lexer) scanToken() (bool, error) {
	for !l.isAtEnd() {
		ch := l.src[l.cur]
		if ch != ' ' && ch != '\t' && ch != '\r' {
			break
		}
		l.space = true
		l.cur++
	}
	l.start = l.cur

	if l.isAtEnd() {
		l.addToken(EOF, "")
		return false, nil
	}

	ch := l.src[l.cur]
	l.cur++

	switch ch {
	case '\n', ';':
		l.addToken(NEWLINE, string(ch))
	case '|':
		l.addToken(PIPE, "|")
	case '(':
		l.addToken(LROUND, "(")
	case ')':
		l.addToken(RROUND, ")")
	case '[':
		l.addToken(LSQUARE, "[")
	case ']':
		l.addToken(RSQUARE, "]")
	case '{':
		l.addToken(LCURLY, "{")
	case '}':
		l.addToken(RCURLY, "}")
	case ',':
		l.addToken(COMMA, ",")
	case ':':
		l.addToken(COLON, ":")
	case '=':
		l.addToken(ASSIGN, "=")
	case '^':
		l.addToken(CARET, "^")
	case '#':
		for !l.isAtEnd() && l.src[l.cur] != '\n' {
			l.cur++
		}
		l.space = true
	case '"', '\'', '`':
		text, err := l.scanString(ch)
		if err != nil {
			return false, err
		}
		l.addToken(STRING, text)
	case '$':
		name, err := l.scanVariable()
		if err != nil {
			return false, err
		}
		l.addToken(VARIABLE, name)
	default:
		l.addToken(BARE, l.scanBare())
	}
	return true, nil
}

// Scan tokenizes the entire source, the last token is always EOF.
func (l *Lexer) Scan() ([]Token, error) {
	for {
		more, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		if !more {
			return l.tokens, nil
		}
	}
}
