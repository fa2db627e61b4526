// Package expr implements the small expression language format schemas
// use for field conditions and array lengths.
//
// An expression is compiled once into an immutable tree and evaluated
// many times against an Env supplying identifier values. Identifiers
// are normalized at compile time so schema display names ("Num
// Vertices") and resolved field names line up. Values are int64
// throughout; comparisons and boolean operators yield 0 or 1.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrSyntax     = errors.New("invalid expression syntax")
	ErrUnresolved = errors.New("unresolved identifier")
	ErrEval       = errors.New("expression evaluation failed")
)

// Env supplies identifier values during evaluation. Lookup for an
// unknown name should return an error wrapping ErrUnresolved.
type Env interface {
	Lookup(name string) (int64, error)
}

// EnvFunc adapts a function to the Env interface.
type EnvFunc func(name string) (int64, error)

func (f EnvFunc) Lookup(name string) (int64, error) { return f(name) }

// Expr is a compiled expression. Safe for concurrent use.
type Expr struct {
	src  string
	root node
}

// Compile parses src into a reusable expression. Identifiers are passed
// through norm before being stored; a nil norm keeps them verbatim.
func Compile(src string, norm func(string) string) (*Expr, error) {
	toks, err := lex(src, norm)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	root, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, p.peek().text, src)
	}
	return &Expr{src: src, root: root}, nil
}

// MustCompile is Compile for expressions known to be well formed.
func MustCompile(src string, norm func(string) string) *Expr {
	e, err := Compile(src, norm)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the expression against env.
func (e *Expr) Eval(env Env) (int64, error) {
	return e.root.eval(env)
}

// EvalBool evaluates the expression and interprets any nonzero result
// as true.
func (e *Expr) EvalBool(env Env) (bool, error) {
	v, err := e.root.eval(env)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// String renders a canonical, fully parenthesized form.
func (e *Expr) String() string {
	var sb strings.Builder
	e.root.render(&sb)
	return sb.String()
}

// Source returns the text the expression was compiled from.
func (e *Expr) Source() string { return e.src }

type node interface {
	eval(env Env) (int64, error)
	render(sb *strings.Builder)
}

type litNode int64

func (n litNode) eval(Env) (int64, error) { return int64(n), nil }

func (n litNode) render(sb *strings.Builder) {
	sb.WriteString(strconv.FormatInt(int64(n), 10))
}

type identNode string

func (n identNode) eval(env Env) (int64, error) {
	if env == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnresolved, string(n))
	}
	return env.Lookup(string(n))
}

func (n identNode) render(sb *strings.Builder) { sb.WriteString(string(n)) }

type unaryNode struct {
	op string
	x  node
}

func (n *unaryNode) eval(env Env) (int64, error) {
	v, err := n.x.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "!":
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case "-":
		return -v, nil
	}
	return 0, fmt.Errorf("%w: operator %q", ErrEval, n.op)
}

func (n *unaryNode) render(sb *strings.Builder) {
	sb.WriteString(n.op)
	sb.WriteByte('(')
	n.x.render(sb)
	sb.WriteByte(')')
}

type binaryNode struct {
	op   string
	x, y node
}

func (n *binaryNode) eval(env Env) (int64, error) {
	x, err := n.x.eval(env)
	if err != nil {
		return 0, err
	}

	// Boolean combinators short-circuit so a condition can guard an
	// identifier that only resolves when the guard holds.
	switch n.op {
	case "&&":
		if x == 0 {
			return 0, nil
		}
		y, err := n.y.eval(env)
		if err != nil {
			return 0, err
		}
		return btoi(y != 0), nil
	case "||":
		if x != 0 {
			return 1, nil
		}
		y, err := n.y.eval(env)
		if err != nil {
			return 0, err
		}
		return btoi(y != 0), nil
	}

	y, err := n.y.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrEval)
		}
		return x / y, nil
	case "%":
		if y == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrEval)
		}
		return x % y, nil
	case "<<":
		if y < 0 {
			return 0, fmt.Errorf("%w: negative shift count", ErrEval)
		}
		return x << uint64(y), nil
	case ">>":
		if y < 0 {
			return 0, fmt.Errorf("%w: negative shift count", ErrEval)
		}
		return x >> uint64(y), nil
	case "&":
		return x & y, nil
	case "^":
		return x ^ y, nil
	case "|":
		return x | y, nil
	case "==":
		return btoi(x == y), nil
	case "!=":
		return btoi(x != y), nil
	case "<":
		return btoi(x < y), nil
	case "<=":
		return btoi(x <= y), nil
	case ">":
		return btoi(x > y), nil
	case ">=":
		return btoi(x >= y), nil
	}
	return 0, fmt.Errorf("%w: operator %q", ErrEval, n.op)
}

func (n *binaryNode) render(sb *strings.Builder) {
	sb.WriteByte('(')
	n.x.render(sb)
	sb.WriteByte(' ')
	sb.WriteString(n.op)
	sb.WriteByte(' ')
	n.y.render(sb)
	sb.WriteByte(')')
}

func btoi(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Binding strength, loosest first. Bitwise operators bind tighter than
// comparisons so "Flags & 2 == 2" means "(Flags & 2) == 2".
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3,
	"|": 4,
	"^": 5,
	"&": 6,
	"<<": 7, ">>": 7,
	"+": 8, "-": 8,
	"*": 9, "/": 9, "%": 9,
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) parseBinary(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		prec, ok := precedence[t.text]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text, x: left, y: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "!" || t.text == "-") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: t.text, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		return litNode(t.val), nil
	case tokIdent:
		return identNode(t.text), nil
	case tokLParen:
		inner, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis in %q", ErrSyntax, p.src)
		}
		return inner, nil
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of expression in %q", ErrSyntax, p.src)
	default:
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, t.text, p.src)
	}
}
