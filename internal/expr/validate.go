package expr

// deniedIdents can never appear as identifiers, in any position. The list
// mirrors the hostile surface of the scripting environments the expression
// text may have been authored in; none of these resolve to anything here,
// but rejecting them keeps the failure loud and early.
var deniedIdents = map[string]bool{
	"eval":           true,
	"Function":       true,
	"constructor":    true,
	"prototype":      true,
	"__proto__":      true,
	"window":         true,
	"document":       true,
	"globalThis":     true,
	"self":           true,
	"fetch":          true,
	"XMLHttpRequest": true,
	"WebSocket":      true,
	"EventSource":    true,
	"require":        true,
	"module":         true,
	"process":        true,
	"Buffer":         true,
	"import":         true,
}

// deniedProps can never be accessed as members, dotted or computed.
var deniedProps = map[string]bool{
	"constructor": true,
	"prototype":   true,
	"__proto__":   true,
}

// mathFns is the only callable surface.
var mathFns = map[string]bool{
	"abs": true, "ceil": true, "floor": true, "round": true, "sqrt": true,
	"sin": true, "cos": true, "tan": true, "asin": true, "acos": true,
	"atan": true, "atan2": true, "min": true, "max": true, "pow": true,
	"log": true, "exp": true, "random": true, "sign": true, "trunc": true,
}

// validate is the security pass, run once per compile before any evaluation.
func validate(src string, n node) error {
	switch v := n.(type) {
	case litNode:
		return nil
	case identNode:
		if deniedIdents[v.name] {
			return errf(src, "identifier %q is not allowed", v.name)
		}
		return nil
	case arrayNode:
		for _, e := range v.elems {
			if err := validate(src, e); err != nil {
				return err
			}
		}
		return nil
	case unaryNode:
		return validate(src, v.operand)
	case binaryNode:
		if err := validate(src, v.left); err != nil {
			return err
		}
		return validate(src, v.right)
	case condNode:
		if err := validate(src, v.cond); err != nil {
			return err
		}
		if err := validate(src, v.then); err != nil {
			return err
		}
		return validate(src, v.els)
	case memberNode:
		if !v.computed {
			if deniedProps[v.name] {
				return errf(src, "property %q is not allowed", v.name)
			}
		} else {
			if lit, ok := v.prop.(litNode); ok {
				if s, ok := lit.val.(string); ok && deniedProps[s] {
					return errf(src, "property %q is not allowed", s)
				}
			}
			if err := validate(src, v.prop); err != nil {
				return err
			}
		}
		return validate(src, v.obj)
	case callNode:
		m, ok := v.callee.(memberNode)
		if !ok || m.computed {
			return errf(src, "only Math.<fn> calls are allowed")
		}
		obj, ok := m.obj.(identNode)
		if !ok || obj.name != "Math" {
			return errf(src, "only Math.<fn> calls are allowed")
		}
		if !mathFns[m.name] {
			return errf(src, "Math.%s is not allowed", m.name)
		}
		for _, a := range v.args {
			if err := validate(src, a); err != nil {
				return err
			}
		}
		return nil
	}
	return errf(src, "unsupported expression construct")
}
