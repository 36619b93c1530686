package shell

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/value"
)

// Parser turns tokens into engine blocks. Blocks found inside the source are
// registered with the engine as they are parsed.
type Parser struct {
	src    string
	tokens []Token
	pos    int

	// engine is nil when only constants are accepted.
	engine *engine.EngineState
}

// Parse compiles a command line. Nested blocks and closures are registered
// with state.
func Parse(state *engine.EngineState, src string) (*engine.Block, error) {
	tokens, err := NewLexer(src).Scan()
	if err != nil {
		return nil, wrapParseError(err)
	}

	p := &Parser{src: src, tokens: tokens, engine: state}
	block, err := p.parseBlockBody(EOF)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return block, nil
}

// ParseNuon reads a constant written in the shell's object notation. Empty
// input is null.
func ParseNuon(src string) (value.Value, error) {
	tokens, err := NewLexer(src).Scan()
	if err != nil {
		return nil, wrapParseError(err)
	}

	p := &Parser{src: src, tokens: tokens}
	p.skipSeparators()
	if p.check(EOF) {
		return value.Nothing{}, nil
	}

	expr, err := p.parseValue(engine.ShapeAny)
	if err != nil {
		return nil, wrapParseError(err)
	}
	p.skipSeparators()
	if !p.check(EOF) {
		return nil, wrapParseError(p.unexpected())
	}

	// Constant expressions never look at the context.
	return engine.EvalExpr(engine.NewContext(engine.NewEngineState(), nil), expr)
}

func wrapParseError(err error) error {
	var perr *ParseError
	if errors.As(err, &perr) {
		return asShellError(perr)
	}
	return err
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(tt TokenType) bool {
	return p.peek().Type == tt
}

func (p *Parser) match(tt TokenType) bool {
	if p.check(tt) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if !p.check(tt) {
		tok := p.peek()
		return tok, p.errorAt(tok, fmt.Sprintf("expected %s, found %s", tt, describe(tok)))
	}
	return p.advance(), nil
}

func (p *Parser) skipNewlines() {
	for p.match(NEWLINE) {
	}
}

func (p *Parser) skipSeparators() {
	for p.match(NEWLINE) || p.match(COMMA) {
	}
}

func (p *Parser) errorAt(tok Token, msg string) *ParseError {
	return newParseError(p.src, tok.Start, tok.End, msg)
}

func (p *Parser) unexpected() *ParseError {
	tok := p.peek()
	return p.errorAt(tok, "unexpected "+describe(tok))
}

func describe(tok Token) string {
	switch tok.Type {
	case BARE, STRING:
		return fmt.Sprintf("%s %q", tok.Type, tok.Text)
	case VARIABLE:
		return "$" + tok.Text
	default:
		return tok.Type.String()
	}
}

func span(start, end Token) value.Span {
	return value.Span{Start: start.Start, End: end.End}
}

// previous returns the last consumed token.
func (p *Parser) previous() Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) parseBlockBody(end TokenType) (*engine.Block, error) {
	block := &engine.Block{}
	first := p.peek()

	for {
		p.skipNewlines()
		if p.check(end) {
			break
		}
		if p.check(EOF) {
			return nil, p.errorAt(p.peek(), fmt.Sprintf("expected %s before end of input", end))
		}

		pl, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		block.Pipelines = append(block.Pipelines, pl)

		if !p.check(NEWLINE) && !p.check(end) {
			return nil, p.unexpected()
		}
	}

	block.Span = span(first, p.peek())
	return block, nil
}

func (p *Parser) parsePipeline() (*engine.Pipeline, error) {
	first := p.peek()
	pl := &engine.Pipeline{}

	if first.Type == BARE && first.Text == "let" {
		name, err := p.parseLet()
		if err != nil {
			return nil, err
		}
		pl.Let = name
	}

	for {
		el, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		pl.Elements = append(pl.Elements, el)

		if !p.match(PIPE) {
			break
		}
		p.skipNewlines()
	}

	pl.Span = span(first, p.previous())
	return pl, nil
}

func (p *Parser) parseLet() (string, error) {
	p.advance()
	name, err := p.expect(BARE)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return "", err
	}
	return name.Text, nil
}

func (p *Parser) atElementEnd() bool {
	switch p.peek().Type {
	case EOF, NEWLINE, PIPE, RROUND, RCURLY, RSQUARE:
		return true
	}
	return false
}

func (p *Parser) parseElement() (engine.Expr, error) {
	tok := p.peek()

	switch tok.Type {
	case CARET:
		p.advance()
		name := p.peek()
		if name.Type != BARE && name.Type != STRING {
			return nil, p.errorAt(name, "expected a program name after '^'")
		}
		p.advance()
		return p.parseExternal(tok, name)

	case BARE:
		if cmd, words := p.lookupCommand(); cmd != nil {
			return p.parseCall(cmd, words)
		}
		if _, ok := classifyBare(tok.Text).(value.String); !ok {
			return p.parseValue(engine.ShapeAny)
		}
		if p.engine == nil {
			return nil, p.errorAt(tok, "commands aren't allowed in constants")
		}
		p.advance()
		return p.parseExternal(tok, tok)

	case EOF, NEWLINE, PIPE:
		return nil, p.errorAt(tok, "expected a command, found "+describe(tok))

	default:
		return p.parseValue(engine.ShapeAny)
	}
}

// lookupCommand finds the declaration named by the next one or two words,
// preferring the longer name.
func (p *Parser) lookupCommand() (engine.Command, int) {
	if p.engine == nil {
		return nil, 0
	}

	first, second := p.peek(), p.peekAt(1)
	if second.Type == BARE && second.SpaceBefore {
		if cmd, ok := p.engine.FindDecl(first.Text + " " + second.Text); ok {
			return cmd, 2
		}
	}
	if cmd, ok := p.engine.FindDecl(first.Text); ok {
		return cmd, 1
	}
	return nil, 0
}

func (p *Parser) parseExternal(first, name Token) (engine.Expr, error) {
	call := &engine.ExternalCall{
		Name: name.Text,
		Head: span(first, name),
	}

	for !p.atElementEnd() {
		arg, err := p.parseValue(engine.ShapeString)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}

	call.Span = span(first, p.previous())
	return call, nil
}

func isFlagWord(text string) bool {
	if len(text) < 2 || text[0] != '-' {
		return false
	}
	_, isString := classifyBare(text).(value.String)
	return isString
}

func (p *Parser) parseCall(cmd engine.Command, words int) (engine.Expr, error) {
	first := p.peek()
	for i := 0; i < words; i++ {
		p.advance()
	}

	call := &engine.Call{
		Name:  cmd.Name(),
		Named: map[string]engine.Expr{},
		Head:  span(first, p.previous()),
	}
	sig := cmd.Signature()

	for !p.atElementEnd() {
		tok := p.peek()

		if tok.Type == BARE && isFlagWord(tok.Text) {
			p.advance()
			if err := p.parseFlags(call, sig, tok); err != nil {
				return nil, err
			}
			continue
		}

		arg, ok := sig.Positional(len(call.Positional))
		if !ok {
			return nil, p.errorAt(tok, fmt.Sprintf("extra positional argument for %s", call.Name))
		}
		if arg.Keyword != "" {
			if tok.Type != BARE || tok.Text != arg.Keyword {
				return nil, p.errorAt(tok, fmt.Sprintf("expected keyword %q before <%s>", arg.Keyword, arg.Name))
			}
			p.advance()
		}

		expr, err := p.parseValue(arg.Shape)
		if err != nil {
			return nil, err
		}
		call.Positional = append(call.Positional, expr)
	}

	call.Span = span(first, p.previous())
	return call, nil
}

func (p *Parser) parseFlags(call *engine.Call, sig *engine.Signature, tok Token) error {
	if strings.HasPrefix(tok.Text, "--") {
		flag, ok := sig.LongFlag(tok.Text[2:])
		if !ok {
			return p.errorAt(tok, fmt.Sprintf("unknown flag %s for %s", tok.Text, call.Name))
		}
		return p.parseFlagArg(call, flag, tok)
	}

	for _, short := range tok.Text[1:] {
		flag, ok := sig.ShortFlag(short)
		if !ok {
			return p.errorAt(tok, fmt.Sprintf("unknown flag -%c for %s", short, call.Name))
		}
		if err := p.parseFlagArg(call, flag, tok); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseFlagArg(call *engine.Call, flag engine.Flag, tok Token) error {
	if flag.Arg == nil {
		call.Named[flag.Long] = nil
		return nil
	}
	if p.atElementEnd() {
		return p.errorAt(tok, fmt.Sprintf("flag --%s needs a <%s> value", flag.Long, *flag.Arg))
	}
	expr, err := p.parseValue(*flag.Arg)
	if err != nil {
		return err
	}
	call.Named[flag.Long] = expr
	return nil
}

// parseValue reads one argument. The shape decides whether braces open a
// block or a record and whether bare words stay strings.
func (p *Parser) parseValue(shape engine.Shape) (engine.Expr, error) {
	tok := p.peek()

	switch tok.Type {
	case LCURLY:
		if shape == engine.ShapeBlock || shape == engine.ShapeClosure {
			return p.parseBlockExpr(shape)
		}
		return p.parseRecord()

	case LSQUARE:
		return p.parseListOrTable()

	case LROUND:
		if p.engine == nil {
			return nil, p.errorAt(tok, "subexpressions aren't allowed in constants")
		}
		p.advance()
		block, err := p.parseBlockBody(RROUND)
		if err != nil {
			return nil, err
		}
		end, err := p.expect(RROUND)
		if err != nil {
			return nil, err
		}
		return &engine.Subexpr{Block: block, Span: span(tok, end)}, nil

	case STRING:
		p.advance()
		return &engine.Literal{Value: value.String(tok.Text), Span: span(tok, tok)}, nil

	case VARIABLE:
		if p.engine == nil {
			return nil, p.errorAt(tok, "variables aren't allowed in constants")
		}
		p.advance()
		parts := strings.Split(tok.Text, ".")
		return &engine.VarRef{Name: parts[0], Path: parts[1:], Span: span(tok, tok)}, nil

	case BARE:
		p.advance()
		if tok.Text == "0x" && p.check(LSQUARE) && !p.peek().SpaceBefore {
			return p.parseBinary(tok)
		}
		if shape == engine.ShapeString {
			return &engine.Literal{Value: value.String(tok.Text), Span: span(tok, tok)}, nil
		}
		return &engine.Literal{Value: classifyBare(tok.Text), Span: span(tok, tok)}, nil

	default:
		return nil, p.unexpected()
	}
}

func (p *Parser) parseBlockExpr(shape engine.Shape) (engine.Expr, error) {
	open := p.advance()
	if p.engine == nil {
		return nil, p.errorAt(open, "blocks aren't allowed in constants")
	}

	var params []string
	p.skipNewlines()
	if p.match(PIPE) {
		for !p.match(PIPE) {
			if p.match(COMMA) {
				continue
			}
			name, err := p.expect(BARE)
			if err != nil {
				return nil, err
			}
			params = append(params, name.Text)
		}
	}

	block, err := p.parseBlockBody(RCURLY)
	if err != nil {
		return nil, err
	}
	end, err := p.expect(RCURLY)
	if err != nil {
		return nil, err
	}
	block.Params = params
	block.Span = span(open, end)

	id := p.engine.AddBlock(block)
	if shape == engine.ShapeClosure || len(params) > 0 {
		return &engine.ClosureRef{ID: id, Span: block.Span}, nil
	}
	return &engine.BlockRef{ID: id, Span: block.Span}, nil
}

func (p *Parser) parseRecord() (engine.Expr, error) {
	open := p.advance()
	rec := &engine.RecordExpr{}

	for {
		p.skipSeparators()
		if p.check(RCURLY) {
			break
		}

		key := p.peek()
		if key.Type != BARE && key.Type != STRING {
			return nil, p.errorAt(key, "expected a record key, found "+describe(key))
		}
		p.advance()
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		p.skipNewlines()

		v, err := p.parseValue(engine.ShapeAny)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, engine.RecordField{Key: key.Text, Value: v})
	}

	end := p.advance()
	rec.Span = span(open, end)
	return rec, nil
}

func (p *Parser) parseListItems(shape engine.Shape) ([]engine.Expr, Token, error) {
	var items []engine.Expr
	for {
		p.skipSeparators()
		if p.check(RSQUARE) {
			return items, p.advance(), nil
		}
		item, err := p.parseValue(shape)
		if err != nil {
			return nil, Token{}, err
		}
		items = append(items, item)
	}
}

func (p *Parser) parseListOrTable() (engine.Expr, error) {
	open := p.advance()
	p.skipNewlines()

	if !p.check(LSQUARE) {
		items, end, err := p.parseListItems(engine.ShapeAny)
		if err != nil {
			return nil, err
		}
		return &engine.ListExpr{Items: items, Span: span(open, end)}, nil
	}

	// Either a list whose first item is a list or a table header.
	headerOpen := p.advance()
	header, headerEnd, err := p.parseListItems(engine.ShapeAny)
	if err != nil {
		return nil, err
	}
	if !(p.check(NEWLINE) && p.peek().Text == ";") {
		first := &engine.ListExpr{Items: header, Span: span(headerOpen, headerEnd)}
		rest, end, err := p.parseListItems(engine.ShapeAny)
		if err != nil {
			return nil, err
		}
		return &engine.ListExpr{Items: append([]engine.Expr{first}, rest...), Span: span(open, end)}, nil
	}
	p.advance()

	table := &engine.TableExpr{}
	for _, col := range header {
		lit, ok := col.(*engine.Literal)
		if !ok {
			return nil, newParseError(p.src, col.ExprSpan().Start, col.ExprSpan().End, "table columns must be constant strings")
		}
		switch name := lit.Value.(type) {
		case value.String:
			table.Columns = append(table.Columns, string(name))
		default:
			// Bare words like 1 or true still name a column.
			table.Columns = append(table.Columns, p.src[lit.Span.Start:lit.Span.End])
		}
	}

	for {
		p.skipSeparators()
		if p.check(RSQUARE) {
			break
		}
		if _, err := p.expect(LSQUARE); err != nil {
			return nil, err
		}
		row, _, err := p.parseListItems(engine.ShapeAny)
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, row)
	}

	end := p.advance()
	table.Span = span(open, end)
	return table, nil
}

func (p *Parser) parseBinary(prefix Token) (engine.Expr, error) {
	p.advance()
	var digits strings.Builder
	for !p.check(RSQUARE) {
		tok := p.advance()
		if tok.Type != BARE {
			return nil, p.errorAt(tok, "expected hex digits in binary literal")
		}
		digits.WriteString(tok.Text)
	}
	end := p.advance()

	b, err := hex.DecodeString(digits.String())
	if err != nil {
		return nil, p.errorAt(end, "invalid binary literal: "+err.Error())
	}
	return &engine.Literal{Value: value.Binary(b), Span: span(prefix, end)}, nil
}

var durationUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"sec", time.Second},
	{"min", time.Minute},
	{"day", 24 * time.Hour},
	{"ns", time.Nanosecond},
	{"us", time.Microsecond},
	{"ms", time.Millisecond},
	{"hr", time.Hour},
	{"wk", 7 * 24 * time.Hour},
}

// classifyBare turns a bare word into the literal it spells, or a string.
func classifyBare(text string) value.Value {
	switch text {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	case "null":
		return value.Nothing{}
	case "NaN":
		return value.Float(math.NaN())
	case "inf":
		return value.Float(math.Inf(1))
	case "-inf":
		return value.Float(math.Inf(-1))
	}

	if text == "" || !(isDigit(text[0]) || (len(text) > 1 && (text[0] == '-' || text[0] == '+') && (isDigit(text[1]) || text[1] == '.'))) {
		return value.String(text)
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return value.Float(f)
	}
	for _, d := range durationUnits {
		if num, ok := strings.CutSuffix(text, d.suffix); ok {
			if n, err := strconv.ParseInt(num, 10, 64); err == nil {
				return value.Duration(time.Duration(n) * d.unit)
			}
			if f, err := strconv.ParseFloat(num, 64); err == nil {
				return value.Duration(time.Duration(f * float64(d.unit)))
			}
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return value.Date(t)
	}
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return value.Date(t)
	}
	return value.String(text)
}
