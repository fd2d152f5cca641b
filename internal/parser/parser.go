package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iley/lispc/internal/ast"
	"github.com/iley/lispc/internal/lexer"
)

type Parser struct {
	lexer   *lexer.Lexer
	lexemes []lexer.Lexeme
	pos     int
}

func New(lex *lexer.Lexer) *Parser {
	return &Parser{lexer: lex}
}

// Parse reads every top-level expression from the input.
func Parse(input io.Reader, filename string) ([]ast.Node, error) {
	return New(lexer.New(input, filename)).ParseAll()
}

// ParseString parses a source string that must contain exactly one expression.
func ParseString(src string) (ast.Node, error) {
	p := New(lexer.New(strings.NewReader(src), ""))
	node, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	lex, err := p.peek()
	if err != nil {
		return nil, err
	}
	if lex.Type != lexer.LEX_EOF {
		return nil, fmt.Errorf("%s: unexpected %v after expression", lex.Loc, lex)
	}
	return node, nil
}

func (p *Parser) consume() (lexer.Lexeme, error) {
	lex, err := p.peek()
	if err != nil {
		return lex, err
	}
	p.pos++
	return lex, nil
}

func (p *Parser) peek() (lexer.Lexeme, error) {
	if p.pos >= len(p.lexemes) {
		lex, err := p.lexer.Next()
		if err != nil {
			return lexer.Lexeme{}, err
		}
		p.lexemes = append(p.lexemes, lex)
	}
	return p.lexemes[p.pos], nil
}

func (p *Parser) ParseAll() ([]ast.Node, error) {
	var nodes []ast.Node
	for {
		lex, err := p.peek()
		if err != nil {
			return nil, err
		}
		if lex.Type == lexer.LEX_EOF {
			return nodes, nil
		}
		node, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
}

func (p *Parser) ParseExpression() (ast.Node, error) {
	lex, err := p.consume()
	if err != nil {
		return nil, err
	}

	switch {
	case lex.Type == lexer.LEX_EOF:
		return nil, fmt.Errorf("%s: unexpected end of input", lex.Loc)
	case lex.IsOpen():
		return p.parseList(lex)
	case lex.IsClose():
		return nil, fmt.Errorf("%s: unexpected %q", lex.Loc, lex.Str)
	default:
		return parseAtom(lex)
	}
}

func parseAtom(lex lexer.Lexeme) (ast.Node, error) {
	switch lex.Type {
	case lexer.LEX_INTEGER:
		val, err := strconv.ParseInt(lex.Str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer literal %q: %w", lex.Loc, lex.Str, err)
		}
		return &ast.IntegerLiteral{Loc: lex.Loc, Value: val}, nil
	case lexer.LEX_FLOAT:
		val, err := strconv.ParseFloat(lex.Str, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid float literal %q: %w", lex.Loc, lex.Str, err)
		}
		return &ast.FloatLiteral{Loc: lex.Loc, Value: val}, nil
	case lexer.LEX_IDENT:
		return &ast.Identifier{Loc: lex.Loc, Name: lex.Str}, nil
	}
	return nil, fmt.Errorf("%s: unexpected %v", lex.Loc, lex)
}

// parseList parses the rest of a list after its opening lexeme.
func (p *Parser) parseList(open lexer.Lexeme) (ast.Node, error) {
	head, err := p.consume()
	if err != nil {
		return nil, err
	}
	if head.Type != lexer.LEX_IDENT {
		return nil, fmt.Errorf("%s: expected operator name, got %v", head.Loc, head)
	}

	if head.Str == "let*" {
		return p.parseLet(open)
	}

	var params []ast.Node
	for {
		lex, err := p.peek()
		if err != nil {
			return nil, err
		}
		if lex.IsClose() || lex.Type == lexer.LEX_EOF {
			break
		}
		param, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}

	if err := p.expectClose(open); err != nil {
		return nil, err
	}
	return &ast.Operation{Loc: open.Loc, Op: head.Str, Params: params}, nil
}

// parseLet parses (let* ((name expr) ...) body) after the let* keyword.
func (p *Parser) parseLet(open lexer.Lexeme) (ast.Node, error) {
	bindingsOpen, err := p.consume()
	if err != nil {
		return nil, err
	}
	if !bindingsOpen.IsOpen() {
		return nil, fmt.Errorf("%s: let*: expected binding list, got %v", bindingsOpen.Loc, bindingsOpen)
	}

	var bindings []ast.Binding
	for {
		lex, err := p.consume()
		if err != nil {
			return nil, err
		}
		if lex.IsClose() {
			if lex.Str != bindingsOpen.Closer() {
				return nil, fmt.Errorf("%s: expected %q, got %q", lex.Loc, bindingsOpen.Closer(), lex.Str)
			}
			break
		}
		if !lex.IsOpen() {
			return nil, fmt.Errorf("%s: let*: each binding must be (name expr), got %v", lex.Loc, lex)
		}
		binding, err := p.parseBinding(lex)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}

	body, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectClose(open); err != nil {
		return nil, err
	}
	return &ast.LetBinding{Loc: open.Loc, Bindings: bindings, Body: body}, nil
}

func (p *Parser) parseBinding(open lexer.Lexeme) (ast.Binding, error) {
	name, err := p.consume()
	if err != nil {
		return ast.Binding{}, err
	}
	if name.Type != lexer.LEX_IDENT {
		return ast.Binding{}, fmt.Errorf("%s: let*: binding name must be an identifier, got %v", name.Loc, name)
	}
	if name.Str == ast.True || name.Str == ast.False {
		return ast.Binding{}, fmt.Errorf("%s: let*: cannot rebind %s", name.Loc, name.Str)
	}
	value, err := p.ParseExpression()
	if err != nil {
		return ast.Binding{}, err
	}
	if err := p.expectClose(open); err != nil {
		return ast.Binding{}, err
	}
	return ast.Binding{Loc: open.Loc, Name: name.Str, Value: value}, nil
}

func (p *Parser) expectClose(open lexer.Lexeme) error {
	lex, err := p.consume()
	if err != nil {
		return err
	}
	if lex.Type == lexer.LEX_EOF {
		return fmt.Errorf("%s: unclosed %q opened at %s", lex.Loc, open.Str, open.Loc)
	}
	if lex.Str != open.Closer() {
		return fmt.Errorf("%s: expected %q, got %v", lex.Loc, open.Closer(), lex)
	}
	return nil
}
