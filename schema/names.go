package schema

// JSONName converts a snake_case field name to lowerCamelCase, the default JSON
// name protoc derives for a field.
func JSONName(s string) string {
	if s == "" {
		return s
	}
	// Fast path: no underscore
	hasUnderscore := false
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			hasUnderscore = true
			break
		}
	}
	if !hasUnderscore {
		if s[0] >= 'A' && s[0] <= 'Z' {
			return string(s[0]-'A'+'a') + s[1:]
		}
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if len(out) == 0 {
			if c >= 'A' && c <= 'Z' {
				c = c - 'A' + 'a'
			}
			out = append(out, c)
			upperNext = false
			continue
		}
		if upperNext {
			if c >= 'a' && c <= 'z' {
				c = c - 'a' + 'A'
			}
			upperNext = false
		}
		out = append(out, c)
	}
	return string(out)
}

// MapEntryName returns the synthesized entry message name for a map field.
func MapEntryName(parent, field string) string {
	name := []byte(field)
	upper := true
	out := make([]byte, 0, len(name)+5)
	for _, c := range name {
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upper = false
		out = append(out, c)
	}
	if parent == "" {
		return string(out) + "Entry"
	}
	return parent + "." + string(out) + "Entry"
}
