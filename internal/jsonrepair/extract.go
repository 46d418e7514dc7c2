package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	reFence       = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \\t]*\\r?\\n?(.*?)(?:```|$)")
	rePairString  = regexp.MustCompile(`"((?:[^"\\\n]|\\.)+)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	rePairArray   = regexp.MustCompile(`"((?:[^"\\\n]|\\.)+)"\s*:\s*\[([^\]]*)\]`)
	reArrayString = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// stripFence returns the body of a markdown code fence that wraps the
// payload, or raw unchanged when there is none. A fence counts as a wrapper
// when it opens the text or opens before the first '{' or '['; backticks
// inside a JSON value are left alone. An unclosed fence runs to end of input.
func stripFence(raw string) string {
	at := strings.Index(raw, "```")
	if at < 0 {
		return raw
	}
	if at > 0 {
		brace := strings.IndexAny(raw, "{[")
		if brace < 0 || brace < at {
			return raw
		}
	}
	m := reFence.FindStringSubmatch(raw[at:])
	if m == nil {
		return raw
	}
	return m[1]
}

// locate returns the text starting at the first '{' (or a leading '['). With
// complete set, it also cuts after the last matching closer.
func locate(text string, complete bool) (string, bool) {
	text = strings.TrimSpace(text)
	open, closer := byte('{'), byte('}')
	if strings.HasPrefix(text, "[") {
		open, closer = '[', ']'
	}
	i := strings.IndexByte(text, open)
	if i < 0 {
		return "", false
	}
	text = text[i:]
	if complete {
		j := strings.LastIndexByte(text, closer)
		if j < 0 {
			return "", false
		}
		text = text[:j+1]
	}
	return text, true
}

// Extract pulls `"key": "value"` and `"key": ["a", "b"]` pairs out of text
// that is not parseable as a whole. The first occurrence of a key wins.
func Extract(text string) map[string]any {
	out := map[string]any{}
	for _, m := range rePairString.FindAllStringSubmatch(text, -1) {
		key := unquote(m[1])
		if _, seen := out[key]; seen || key == "" {
			continue
		}
		out[key] = unquote(m[2])
	}
	for _, m := range rePairArray.FindAllStringSubmatch(text, -1) {
		key := unquote(m[1])
		if _, seen := out[key]; seen || key == "" {
			continue
		}
		var items []any
		for _, item := range reArrayString.FindAllStringSubmatch(m[2], -1) {
			items = append(items, unquote(item[1]))
		}
		if len(items) > 0 {
			out[key] = items
		}
	}
	return out
}

// unquote decodes JSON escapes in a captured string body, falling back to
// the raw text when it does not decode.
func unquote(body string) string {
	var s string
	if err := json.Unmarshal(Sanitize(`"`+body+`"`), &s); err == nil {
		return s
	}
	return body
}
