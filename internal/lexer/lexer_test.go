package lexer

import (
	"strings"
	"testing"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Lexeme
	}{
		{
			name:  "empty input",
			input: "",
			expected: []Lexeme{
				{Type: LEX_EOF, Loc: Location{Filename: "test.lisp", Line: 1, Col: 1}},
			},
		},
		{
			name:  "simple expression",
			input: "(+ 1 2)",
			expected: []Lexeme{
				{Type: LEX_PUNCTUATION, Str: "(", Loc: Location{Filename: "test.lisp", Line: 1, Col: 1}},
				{Type: LEX_IDENT, Str: "+", Loc: Location{Filename: "test.lisp", Line: 1, Col: 2}},
				{Type: LEX_INTEGER, Str: "1", Loc: Location{Filename: "test.lisp", Line: 1, Col: 4}},
				{Type: LEX_INTEGER, Str: "2", Loc: Location{Filename: "test.lisp", Line: 1, Col: 6}},
				{Type: LEX_PUNCTUATION, Str: ")", Loc: Location{Filename: "test.lisp", Line: 1, Col: 7}},
				{Type: LEX_EOF, Loc: Location{Filename: "test.lisp", Line: 1, Col: 8}},
			},
		},
		{
			name:  "let with brackets and float",
			input: "(let* [(x 1) (y 2.0)] (+ x y))",
			expected: []Lexeme{
				{Type: LEX_PUNCTUATION, Str: "(", Loc: Location{Filename: "test.lisp", Line: 1, Col: 1}},
				{Type: LEX_IDENT, Str: "let*", Loc: Location{Filename: "test.lisp", Line: 1, Col: 2}},
				{Type: LEX_PUNCTUATION, Str: "[", Loc: Location{Filename: "test.lisp", Line: 1, Col: 7}},
				{Type: LEX_PUNCTUATION, Str: "(", Loc: Location{Filename: "test.lisp", Line: 1, Col: 8}},
				{Type: LEX_IDENT, Str: "x", Loc: Location{Filename: "test.lisp", Line: 1, Col: 9}},
				{Type: LEX_INTEGER, Str: "1", Loc: Location{Filename: "test.lisp", Line: 1, Col: 11}},
				{Type: LEX_PUNCTUATION, Str: ")", Loc: Location{Filename: "test.lisp", Line: 1, Col: 12}},
				{Type: LEX_PUNCTUATION, Str: "(", Loc: Location{Filename: "test.lisp", Line: 1, Col: 14}},
				{Type: LEX_IDENT, Str: "y", Loc: Location{Filename: "test.lisp", Line: 1, Col: 15}},
				{Type: LEX_FLOAT, Str: "2.0", Loc: Location{Filename: "test.lisp", Line: 1, Col: 17}},
				{Type: LEX_PUNCTUATION, Str: ")", Loc: Location{Filename: "test.lisp", Line: 1, Col: 20}},
				{Type: LEX_PUNCTUATION, Str: "]", Loc: Location{Filename: "test.lisp", Line: 1, Col: 21}},
				{Type: LEX_PUNCTUATION, Str: "(", Loc: Location{Filename: "test.lisp", Line: 1, Col: 23}},
				{Type: LEX_IDENT, Str: "+", Loc: Location{Filename: "test.lisp", Line: 1, Col: 24}},
				{Type: LEX_IDENT, Str: "x", Loc: Location{Filename: "test.lisp", Line: 1, Col: 26}},
				{Type: LEX_IDENT, Str: "y", Loc: Location{Filename: "test.lisp", Line: 1, Col: 28}},
				{Type: LEX_PUNCTUATION, Str: ")", Loc: Location{Filename: "test.lisp", Line: 1, Col: 29}},
				{Type: LEX_PUNCTUATION, Str: ")", Loc: Location{Filename: "test.lisp", Line: 1, Col: 30}},
				{Type: LEX_EOF, Loc: Location{Filename: "test.lisp", Line: 1, Col: 31}},
			},
		},
		{
			name:  "comments and newlines",
			input: "; header\n(empty? #t) ; trailing\n",
			expected: []Lexeme{
				{Type: LEX_PUNCTUATION, Str: "(", Loc: Location{Filename: "test.lisp", Line: 2, Col: 1}},
				{Type: LEX_IDENT, Str: "empty?", Loc: Location{Filename: "test.lisp", Line: 2, Col: 2}},
				{Type: LEX_IDENT, Str: "#t", Loc: Location{Filename: "test.lisp", Line: 2, Col: 9}},
				{Type: LEX_PUNCTUATION, Str: ")", Loc: Location{Filename: "test.lisp", Line: 2, Col: 11}},
				{Type: LEX_EOF, Loc: Location{Filename: "test.lisp", Line: 3, Col: 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := New(strings.NewReader(tt.input), "test.lisp")
			got, err := lexer.All()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d lexemes, got %d: %v", len(tt.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("lexeme %d: got %v at %s, want %v at %s", i, got[i], got[i].Loc, tt.expected[i], tt.expected[i].Loc)
				}
			}
		})
	}
}

func TestClassifyAtom(t *testing.T) {
	tests := []struct {
		atom     string
		expected TokenType
	}{
		{"0", LEX_INTEGER},
		{"42", LEX_INTEGER},
		{"-7", LEX_INTEGER},
		{"+7", LEX_INTEGER},
		{"2.5", LEX_FLOAT},
		{"3.", LEX_FLOAT},
		{".5", LEX_FLOAT},
		{"1e10", LEX_FLOAT},
		{"-1.5e-3", LEX_FLOAT},
		{"-", LEX_IDENT},
		{"+", LEX_IDENT},
		{"1e", LEX_IDENT},
		{"mod", LEX_IDENT},
		{"let*", LEX_IDENT},
		{"#f", LEX_IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.atom, func(t *testing.T) {
			got, err := classifyAtom(tt.atom)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("classifyAtom(%q) = %s, want %s", tt.atom, got, tt.expected)
			}
		})
	}
}
