package lexer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
)

type TokenType int

// Token types
const (
	LEX_EOF TokenType = iota
	LEX_PUNCTUATION
	LEX_IDENT
	LEX_INTEGER
	LEX_FLOAT
)

func (t TokenType) String() string {
	switch t {
	case LEX_EOF:
		return "EOF"
	case LEX_PUNCTUATION:
		return "PUNCTUATION"
	case LEX_IDENT:
		return "IDENT"
	case LEX_INTEGER:
		return "INTEGER"
	case LEX_FLOAT:
		return "FLOAT"
	default:
		return "UNKNOWN"
	}
}

var (
	integerPattern = regexp2.MustCompile(`^[+-]?\d+$`, regexp2.None)
	// A float needs a decimal point or an exponent, otherwise it is an integer.
	floatPattern = regexp2.MustCompile(`^[+-]?(?:\d+\.\d*|\.\d+|\d+(?=[eE]))(?:[eE][+-]?\d+)?$`, regexp2.None)
)

type Location struct {
	Filename string
	Line     int
	Col      int
}

func (l Location) String() string {
	if l.Filename == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Col)
}

func (l Location) IsZero() bool {
	return l.Line == 0 && l.Col == 0
}

type Lexeme struct {
	Type TokenType
	Str  string
	Loc  Location
}

func (l Lexeme) String() string {
	if l.Str == "" {
		return fmt.Sprintf("<%s>", l.Type)
	}
	return fmt.Sprintf("<%s %q>", l.Type, l.Str)
}

func (l Lexeme) IsPunctuation(pv string) bool {
	return l.Type == LEX_PUNCTUATION && l.Str == pv
}

// IsOpen reports whether the lexeme opens a list, either "(" or "[".
func (l Lexeme) IsOpen() bool {
	return l.IsPunctuation("(") || l.IsPunctuation("[")
}

func (l Lexeme) IsClose() bool {
	return l.IsPunctuation(")") || l.IsPunctuation("]")
}

// Closer returns the punctuation that matches an opening lexeme.
func (l Lexeme) Closer() string {
	if l.IsPunctuation("[") {
		return "]"
	}
	return ")"
}

type Lexer struct {
	input     *bufio.Reader
	filename  string
	line      int
	col       int
	prevCol   int
	lastRune  rune
	hasUnread bool
}

func New(inputReader io.Reader, filename string) *Lexer {
	return &Lexer{
		input:    bufio.NewReader(inputReader),
		filename: filename,
		line:     1,
		col:      1,
		prevCol:  1,
	}
}

func (l *Lexer) location(line, col int) Location {
	return Location{Filename: l.filename, Line: line, Col: col}
}

// readRune reads the next rune from the input
func (l *Lexer) readRune() (rune, error) {
	var r rune
	var err error

	if l.hasUnread {
		l.hasUnread = false
		r = l.lastRune
	} else {
		l.prevCol = l.col
		r, _, err = l.input.ReadRune()
	}

	if err != nil {
		return 0, err
	}

	l.lastRune = r
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, nil
}

// unreadRune puts back the last read rune.
// Should be called at most once per readRune.
func (l *Lexer) unreadRune() {
	l.hasUnread = true
	if l.lastRune == '\n' {
		l.line--
	}
	l.col = l.prevCol
}

// skipSpace skips whitespace and ; comments.
func (l *Lexer) skipSpace() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if r == ';' {
			if err := l.skipComment(); err != nil {
				return err
			}
			continue
		}
		if !unicode.IsSpace(r) {
			l.unreadRune()
			return nil
		}
	}
}

func (l *Lexer) skipComment() error {
	for {
		r, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if r == '\n' {
			return nil
		}
	}
}

func isDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == '[' || r == ']' || r == ';'
}

// Next returns the next lexeme from the input
func (l *Lexer) Next() (Lexeme, error) {
	if err := l.skipSpace(); err != nil {
		return Lexeme{Type: LEX_EOF}, err
	}
	startLine := l.line
	startCol := l.col
	r, err := l.readRune()
	if err != nil {
		if err == io.EOF {
			return Lexeme{Type: LEX_EOF, Loc: l.location(startLine, startCol)}, nil
		}
		return Lexeme{Type: LEX_EOF}, err
	}

	switch r {
	case '(', ')', '[', ']':
		return Lexeme{
			Type: LEX_PUNCTUATION,
			Str:  string(r),
			Loc:  l.location(startLine, startCol),
		}, nil
	}

	l.unreadRune()
	return l.lexAtom(startLine, startCol)
}

func (l *Lexer) lexAtom(startLine, startCol int) (Lexeme, error) {
	var sb strings.Builder
	for {
		r, err := l.readRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Lexeme{Type: LEX_EOF}, err
		}
		if isDelimiter(r) {
			l.unreadRune()
			break
		}
		sb.WriteRune(r)
	}

	str := sb.String()
	typ, err := classifyAtom(str)
	if err != nil {
		return Lexeme{Type: LEX_EOF}, fmt.Errorf("%s: %w", l.location(startLine, startCol), err)
	}
	return Lexeme{
		Type: typ,
		Str:  str,
		Loc:  l.location(startLine, startCol),
	}, nil
}

func classifyAtom(str string) (TokenType, error) {
	if ok, err := integerPattern.MatchString(str); err != nil {
		return LEX_EOF, err
	} else if ok {
		return LEX_INTEGER, nil
	}
	if ok, err := floatPattern.MatchString(str); err != nil {
		return LEX_EOF, err
	} else if ok {
		return LEX_FLOAT, nil
	}
	return LEX_IDENT, nil
}

// All reads lexemes until EOF. The trailing EOF lexeme is included.
func (l *Lexer) All() ([]Lexeme, error) {
	var result []Lexeme
	for {
		lex, err := l.Next()
		if err != nil {
			return result, err
		}
		result = append(result, lex)
		if lex.Type == LEX_EOF {
			return result, nil
		}
	}
}
