package pointer

// Copy returns a deep copy of maps and slices nested in v. Other values are
// returned as is. map[string]string values are widened to map[string]any so
// pointer traversal can descend into them.
func Copy(v any) any {
	return normalize(v)
}

// CopyMap deep copies a parameter map. A nil map yields an empty map.
func CopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

// CopyTemplate deep copies template parameters.
func CopyTemplate(m map[string]TemplateValue) map[string]TemplateValue {
	out := make(map[string]TemplateValue, len(m))
	for k, v := range m {
		out[k] = TemplateValue{Value: normalize(v.Value), Encode: v.Encode}
	}
	return out
}

// CopyParams deep copies every collection of p.
func CopyParams(p Params) Params {
	return Params{
		Template: CopyTemplate(p.Template),
		Query:    CopyMap(p.Query),
		Header:   CopyMap(p.Header),
		Body:     normalize(p.Body),
		Form:     CopyMap(p.Form),
	}
}

func normalize(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = normalize(val)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = val
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = val
		}
		return out
	default:
		return v
	}
}
