// Package expr implements the engine's expression language: a small,
// side-effect-free subset of arithmetic, logic and Math calls evaluated
// against a read-only context. Scripts never reach this package; it only
// sees single expressions embedded in action and collision data.
package expr

import "fmt"

// Error reports a syntactically invalid, disallowed, or failed expression.
// Callers treat it as "this expression is bad", never as a fatal condition.
type Error struct {
	Expr string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("expression %q: %s", e.Expr, e.Msg)
}

func errf(src, format string, args ...any) *Error {
	return &Error{Expr: src, Msg: fmt.Sprintf(format, args...)}
}

// Object lets host types expose members to expressions without this package
// importing them. The entity store's Entity implements it so "data.a.id"
// resolves through a live entity reference.
type Object interface {
	Member(name string) (any, bool)
}

// Env is the read-only evaluation context. All fields may be nil; missing
// lookups resolve to nil (the language's undefined), not errors.
type Env struct {
	Entity map[string]any // current entity's components
	Data   map[string]any // per-invocation data bag
	Rules  map[string]any // live rules tree
	Input  map[string]any // this tick's input
	Time   float64
	Dt     float64

	// Rand backs Math.random(). When nil, each evaluation uses a fresh
	// zero-seeded stream so results stay reproducible.
	Rand func() float64
}

// Program is a validated, reusable compiled expression. Compile once, Eval
// many times with different contexts; this is the per-frame fast path.
type Program struct {
	src  string
	root node
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.src }

// Compile parses and validates src, returning a reusable Program.
func Compile(src string) (*Program, error) {
	root, err := parse(src)
	if err != nil {
		return nil, err
	}
	if err := validate(src, root); err != nil {
		return nil, err
	}
	return &Program{src: src, root: root}, nil
}

// Validate reports whether src parses and passes the security pass, without
// evaluating it.
func Validate(src string) error {
	_, err := Compile(src)
	return err
}

// IsValid is the boolean form of Validate.
func IsValid(src string) bool {
	return Validate(src) == nil
}

// Evaluate validates then evaluates src against env. Unvalidated text is
// never executed.
func Evaluate(src string, env *Env) (any, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Eval(env)
}
