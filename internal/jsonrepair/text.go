package jsonrepair

import "strings"

// Text cleans a single-slot response that should be plain text. A response
// that came back as a JSON object anyway is unwrapped: the value under id
// wins, then a sole value. Surrounding quotes are dropped and the result is
// normalized.
func Text(raw, id string) string {
	text := strings.TrimSpace(stripFence(strings.TrimSpace(raw)))
	if strings.HasPrefix(text, "{") {
		if res, err := Parse(text); err == nil {
			if v, ok := res.Lookup(id); ok {
				return v
			}
			if len(res.Values) == 1 {
				for _, v := range res.Values {
					return v
				}
			}
		}
	}
	if len(text) >= 2 {
		for _, q := range []string{`"`, "'", "“"} {
			end := q
			if q == "“" {
				end = "”"
			}
			if strings.HasPrefix(text, q) && strings.HasSuffix(text, end) && len(text) > len(q)+len(end) {
				text = text[len(q) : len(text)-len(end)]
				break
			}
		}
	}
	return Normalize(text)
}
