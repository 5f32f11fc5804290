package model

import "maps"

func cloneForm(form map[string][]string) map[string][]string {
	if form == nil {
		return nil
	}
	out := make(map[string][]string, len(form))
	for k, v := range form {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// cloneJSON copies a value decoded by encoding/json, nested objects and arrays
// included.
func cloneJSON(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneObject(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneJSON(item)
		}
		return out
	}
	return v
}

func cloneObject(obj map[string]any) map[string]any {
	if obj == nil {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = cloneJSON(v)
	}
	return out
}

func (r Request) clone() Request {
	r.Headers = maps.Clone(r.Headers)
	r.Body = cloneForm(r.Body)
	return r
}

func (r Response) clone() Response {
	r.Headers = maps.Clone(r.Headers)
	r.Body = cloneObject(r.Body)
	return r
}
