package sim

// cloneValue deep-copies a JSON-shaped value and normalizes it to the
// canonical in-memory forms: float64 numbers, map[string]any objects,
// []any arrays. Normalizing here keeps expression evaluation and the
// serialized snapshot byte-stable no matter where a value came from
// (JSON tool args, YAML content packs, Go literals in tests).
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			key, ok := k.(string)
			if !ok {
				continue
			}
			out[key] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	case float64, string, bool, nil:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return v
}

func cloneComponents(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneTags(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}
