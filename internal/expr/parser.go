package expr

// AST node kinds. The set is deliberately closed: no assignment, no loops,
// no function definitions. Anything else fails to parse.
type node interface{}

type litNode struct{ val any } // float64 | string
type identNode struct{ name string }
type arrayNode struct{ elems []node }
type unaryNode struct {
	op      string
	operand node
}
type binaryNode struct {
	op          string
	left, right node
}
type condNode struct{ cond, then, els node }
type memberNode struct {
	obj      node
	name     string // dot access
	computed bool
	prop     node // computed access
}
type callNode struct {
	callee node
	args   []node
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func parse(src string) (node, error) {
	lx := &lexer{src: src}
	toks, err := lx.tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	root, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tkEOF {
		return nil, errf(src, "unexpected token %q", p.peek().text)
	}
	return root, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) accept(op string) bool {
	t := p.peek()
	if t.kind == tkOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(op string) error {
	if !p.accept(op) {
		return errf(p.src, "expected %q, got %q", op, p.peek().text)
	}
	return nil
}

func (p *parser) ternary() (node, error) {
	cond, err := p.logicalOr()
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return condNode{cond: cond, then: then, els: els}, nil
}

// binOps builds the left-associative binary levels.
func (p *parser) binLevel(ops []string, next func() (node, error)) (node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.accept(op) {
				right, err := next()
				if err != nil {
					return nil, err
				}
				left = binaryNode{op: op, left: left, right: right}
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *parser) logicalOr() (node, error) {
	return p.binLevel([]string{"||"}, p.logicalAnd)
}

func (p *parser) logicalAnd() (node, error) {
	return p.binLevel([]string{"&&"}, p.equality)
}

func (p *parser) equality() (node, error) {
	return p.binLevel([]string{"===", "!==", "==", "!="}, p.relational)
}

func (p *parser) relational() (node, error) {
	return p.binLevel([]string{"<=", ">=", "<", ">"}, p.additive)
}

func (p *parser) additive() (node, error) {
	return p.binLevel([]string{"+", "-"}, p.multiplicative)
}

func (p *parser) multiplicative() (node, error) {
	return p.binLevel([]string{"*", "/", "%"}, p.unary)
}

func (p *parser) unary() (node, error) {
	for _, op := range []string{"!", "-", "+"} {
		if p.accept(op) {
			operand, err := p.unary()
			if err != nil {
				return nil, err
			}
			return unaryNode{op: op, operand: operand}, nil
		}
	}
	return p.postfix()
}

func (p *parser) postfix() (node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.accept("."):
			t := p.peek()
			if t.kind != tkIdent {
				return nil, errf(p.src, "expected property name after '.'")
			}
			p.pos++
			n = memberNode{obj: n, name: t.text}
		case p.accept("["):
			prop, err := p.ternary()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			n = memberNode{obj: n, computed: true, prop: prop}
		case p.accept("("):
			var args []node
			if !p.accept(")") {
				for {
					a, err := p.ternary()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.accept(",") {
						continue
					}
					if err := p.expect(")"); err != nil {
						return nil, err
					}
					break
				}
			}
			n = callNode{callee: n, args: args}
		default:
			return n, nil
		}
	}
}

func (p *parser) primary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tkNumber:
		p.pos++
		return litNode{val: t.num}, nil
	case tkString:
		p.pos++
		return litNode{val: t.text}, nil
	case tkIdent:
		p.pos++
		return identNode{name: t.text}, nil
	case tkOp:
		if p.accept("(") {
			inner, err := p.ternary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
		if p.accept("[") {
			var elems []node
			if !p.accept("]") {
				for {
					e, err := p.ternary()
					if err != nil {
						return nil, err
					}
					elems = append(elems, e)
					if p.accept(",") {
						continue
					}
					if err := p.expect("]"); err != nil {
						return nil, err
					}
					break
				}
			}
			return arrayNode{elems: elems}, nil
		}
	}
	return nil, errf(p.src, "unexpected token %q", t.text)
}
