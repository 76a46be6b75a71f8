package expr

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// mathMarker is what the Math identifier resolves to. It is only usable as
// a call target; validation and evalMember enforce that.
type mathMarker struct{}

// Eval evaluates the compiled program against env. The language merges both
// equality operator families into strict comparison; this is a deliberate,
// documented simplification carried over from the engine's data format.
func (p *Program) Eval(env *Env) (any, error) {
	if env == nil {
		env = &Env{}
	}
	ev := &evaluator{src: p.src, env: env}
	return ev.eval(p.root)
}

type evaluator struct {
	src  string
	env  *Env
	rand func() float64
}

func (ev *evaluator) eval(n node) (any, error) {
	switch v := n.(type) {
	case litNode:
		return v.val, nil
	case identNode:
		return ev.ident(v.name)
	case arrayNode:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			val, err := ev.eval(e)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case unaryNode:
		return ev.unary(v)
	case binaryNode:
		return ev.binary(v)
	case condNode:
		c, err := ev.eval(v.cond)
		if err != nil {
			return nil, err
		}
		if Truthy(c) {
			return ev.eval(v.then)
		}
		return ev.eval(v.els)
	case memberNode:
		return ev.member(v)
	case callNode:
		return ev.call(v)
	}
	return nil, errf(ev.src, "unsupported expression construct")
}

func (ev *evaluator) ident(name string) (any, error) {
	switch name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "undefined":
		return nil, nil
	case "Infinity":
		return math.Inf(1), nil
	case "NaN":
		return math.NaN(), nil
	case "Math":
		return mathMarker{}, nil
	case "entity":
		return ev.env.Entity, nil
	case "rules":
		return ev.env.Rules, nil
	case "input":
		return ev.env.Input, nil
	case "data":
		return ev.env.Data, nil
	case "time":
		return ev.env.Time, nil
	case "dt":
		return ev.env.Dt, nil
	}
	// Fallback: data first, then entity components, then undefined.
	if ev.env.Data != nil {
		if v, ok := ev.env.Data[name]; ok {
			return v, nil
		}
	}
	if ev.env.Entity != nil {
		if v, ok := ev.env.Entity[name]; ok {
			return v, nil
		}
	}
	return nil, nil
}

func (ev *evaluator) unary(n unaryNode) (any, error) {
	v, err := ev.eval(n.operand)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "!":
		return !Truthy(v), nil
	case "-":
		return -toNumber(v), nil
	case "+":
		return toNumber(v), nil
	}
	return nil, errf(ev.src, "unknown unary operator %q", n.op)
}

func (ev *evaluator) binary(n binaryNode) (any, error) {
	// Short-circuit forms return operand values, not booleans.
	if n.op == "&&" || n.op == "||" {
		left, err := ev.eval(n.left)
		if err != nil {
			return nil, err
		}
		if n.op == "&&" {
			if !Truthy(left) {
				return left, nil
			}
		} else if Truthy(left) {
			return left, nil
		}
		return ev.eval(n.right)
	}

	left, err := ev.eval(n.left)
	if err != nil {
		return nil, err
	}
	right, err := ev.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "+":
		if ls, ok := left.(string); ok {
			return ls + FormatValue(right), nil
		}
		if rs, ok := right.(string); ok {
			return FormatValue(left) + rs, nil
		}
		return toNumber(left) + toNumber(right), nil
	case "-":
		return toNumber(left) - toNumber(right), nil
	case "*":
		return toNumber(left) * toNumber(right), nil
	case "/":
		return toNumber(left) / toNumber(right), nil
	case "%":
		return math.Mod(toNumber(left), toNumber(right)), nil
	case "<", ">", "<=", ">=":
		return compare(n.op, left, right), nil
	case "==", "===":
		return strictEquals(left, right), nil
	case "!=", "!==":
		return !strictEquals(left, right), nil
	}
	return nil, errf(ev.src, "unknown operator %q", n.op)
}

func (ev *evaluator) member(n memberNode) (any, error) {
	obj, err := ev.eval(n.obj)
	if err != nil {
		return nil, err
	}
	if _, ok := obj.(mathMarker); ok {
		return nil, errf(ev.src, "Math members may only be called")
	}
	if n.computed {
		prop, err := ev.eval(n.prop)
		if err != nil {
			return nil, err
		}
		return ev.access(obj, prop)
	}
	return ev.access(obj, n.name)
}

func (ev *evaluator) access(obj, prop any) (any, error) {
	if obj == nil {
		return nil, errf(ev.src, "cannot read property %v of undefined", prop)
	}
	switch o := obj.(type) {
	case map[string]any:
		key, ok := prop.(string)
		if !ok {
			key = FormatValue(prop)
		}
		return o[key], nil
	case []any:
		if s, ok := prop.(string); ok && s == "length" {
			return float64(len(o)), nil
		}
		idx := int(toNumber(prop))
		if idx < 0 || idx >= len(o) {
			return nil, nil
		}
		return o[idx], nil
	case string:
		if s, ok := prop.(string); ok && s == "length" {
			return float64(len(o)), nil
		}
		return nil, nil
	case Object:
		key, ok := prop.(string)
		if !ok {
			key = FormatValue(prop)
		}
		v, _ := o.Member(key)
		return v, nil
	}
	return nil, errf(ev.src, "cannot read property %v", prop)
}

func (ev *evaluator) call(n callNode) (any, error) {
	m, ok := n.callee.(memberNode)
	if !ok {
		return nil, errf(ev.src, "only Math.<fn> calls are allowed")
	}
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = toNumber(v)
	}
	return ev.mathCall(m.name, args)
}

func (ev *evaluator) mathCall(name string, args []float64) (any, error) {
	arg := func(i int) float64 {
		if i < len(args) {
			return args[i]
		}
		return math.NaN()
	}
	switch name {
	case "abs":
		return math.Abs(arg(0)), nil
	case "ceil":
		return math.Ceil(arg(0)), nil
	case "floor":
		return math.Floor(arg(0)), nil
	case "round":
		return math.Floor(arg(0) + 0.5), nil
	case "sqrt":
		return math.Sqrt(arg(0)), nil
	case "sin":
		return math.Sin(arg(0)), nil
	case "cos":
		return math.Cos(arg(0)), nil
	case "tan":
		return math.Tan(arg(0)), nil
	case "asin":
		return math.Asin(arg(0)), nil
	case "acos":
		return math.Acos(arg(0)), nil
	case "atan":
		return math.Atan(arg(0)), nil
	case "atan2":
		return math.Atan2(arg(0), arg(1)), nil
	case "min":
		out := math.Inf(1)
		for _, a := range args {
			out = math.Min(out, a)
		}
		return out, nil
	case "max":
		out := math.Inf(-1)
		for _, a := range args {
			out = math.Max(out, a)
		}
		return out, nil
	case "pow":
		return math.Pow(arg(0), arg(1)), nil
	case "log":
		return math.Log(arg(0)), nil
	case "exp":
		return math.Exp(arg(0)), nil
	case "sign":
		x := arg(0)
		switch {
		case x > 0:
			return 1.0, nil
		case x < 0:
			return -1.0, nil
		}
		return x, nil
	case "trunc":
		return math.Trunc(arg(0)), nil
	case "random":
		return ev.random(), nil
	}
	return nil, errf(ev.src, "Math.%s is not allowed", name)
}

func (ev *evaluator) random() float64 {
	if ev.env.Rand != nil {
		return ev.env.Rand()
	}
	if ev.rand == nil {
		ev.rand = NewRandSource(0)
	}
	return ev.rand()
}

// NewRandSource returns a splitmix64-backed float source in [0,1). The engine
// seeds one from its serialized state so Math.random stays replayable.
func NewRandSource(seed uint64) func() float64 {
	state := seed
	return func() float64 {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		return float64(z>>11) / float64(1<<53)
	}
}

// Truthy follows the scripting truthiness the data format was written
// against: false, null, 0, NaN and "" are falsy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	}
	return true
}

func toNumber(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case nil:
		return 0
	case string:
		n, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	}
	return math.NaN()
}

func compare(op string, left, right any) bool {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch op {
			case "<":
				return ls < rs
			case ">":
				return ls > rs
			case "<=":
				return ls <= rs
			case ">=":
				return ls >= rs
			}
		}
	}
	ln, rn := toNumber(left), toNumber(right)
	switch op {
	case "<":
		return ln < rn
	case ">":
		return ln > rn
	case "<=":
		return ln <= rn
	case ">=":
		return ln >= rn
	}
	return false
}

// strictEquals compares by dynamic type and value. Composite values compare
// by identity, mirroring object identity in the source data format.
func strictEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr:
		return ra.Pointer() == rb.Pointer()
	}
	return a == b
}

// FormatValue renders a value the way the expression language's string
// concatenation does.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		if math.IsNaN(x) {
			return "NaN"
		}
		if math.IsInf(x, 1) {
			return "Infinity"
		}
		if math.IsInf(x, -1) {
			return "-Infinity"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[object]"
	}
	return string(b)
}
