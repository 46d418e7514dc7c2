// Package jsonrepair recovers a flat slot-id to text mapping from model
// output that was asked to be a JSON object but often is not quite one.
package jsonrepair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"pagecopy/internal/metrics"
)

// ErrUnrecoverable is returned when no strategy yields a mapping.
var ErrUnrecoverable = errors.New("jsonrepair: response is not recoverable")

// Strategy names the step of the ladder that produced a Result.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategySanitize Strategy = "sanitize"
	StrategyRepair   Strategy = "repair"
	StrategyExtract  Strategy = "extract"
)

// Result is a recovered mapping. Values are normalized plain text.
type Result struct {
	Values   map[string]string
	Strategy Strategy

	canon map[string][]string
}

// Lookup finds id exactly, then by a case and separator insensitive match.
// The fallback only applies when a single response key has id's canonical
// form.
func (r *Result) Lookup(id string) (string, bool) {
	if r == nil {
		return "", false
	}
	if v, ok := r.Values[id]; ok {
		return v, true
	}
	if keys := r.canonKeys()[canonKey(id)]; len(keys) == 1 {
		return r.Values[keys[0]], true
	}
	return "", false
}

// Resolve looks up every id at once. Exact keys always win. A fuzzy match is
// only taken when exactly one of ids has that canonical form, exactly one
// response key has it, and no id claims that key exactly, so one response
// key never fills two ids.
func (r *Result) Resolve(ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	if r == nil {
		return out
	}
	claimed := map[string]bool{}
	wanted := map[string]int{}
	for _, id := range ids {
		if _, ok := r.Values[id]; ok {
			claimed[id] = true
		}
		wanted[canonKey(id)]++
	}
	canon := r.canonKeys()
	for _, id := range ids {
		if v, ok := r.Values[id]; ok {
			out[id] = v
			continue
		}
		ck := canonKey(id)
		keys := canon[ck]
		if wanted[ck] != 1 || len(keys) != 1 || claimed[keys[0]] {
			continue
		}
		out[id] = r.Values[keys[0]]
	}
	return out
}

func (r *Result) canonKeys() map[string][]string {
	if r.canon == nil {
		r.canon = make(map[string][]string, len(r.Values))
		for k := range r.Values {
			ck := canonKey(k)
			r.canon[ck] = append(r.canon[ck], k)
		}
	}
	return r.canon
}

func canonKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("_", "-", " ", "-").Replace(k)
}

type step struct {
	name Strategy
	run  func(text string) (map[string]any, error)
}

var ladder = []step{
	{StrategyDirect, direct},
	{StrategySanitize, sanitized},
	{StrategyRepair, repaired},
	{StrategyExtract, extracted},
}

// Parse runs the strategy ladder (direct, sanitize, repair, extract) and
// returns the first mapping recovered. Nested objects are flattened into
// the top level, arrays are joined with newlines, and every value is
// normalized.
func Parse(raw string) (*Result, error) {
	text := stripFence(strings.TrimSpace(raw))
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnrecoverable)
	}
	var errs []error
	for _, st := range ladder {
		obj, err := st.run(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", st.name, err))
			continue
		}
		values := make(map[string]string, len(obj))
		flatten(obj, values)
		for k, v := range values {
			values[k] = Normalize(v)
		}
		metrics.ParseStrategy.WithLabelValues(string(st.name)).Inc()
		return &Result{Values: values, Strategy: st.name}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnrecoverable, errors.Join(errs...))
}

func direct(text string) (map[string]any, error) {
	// A JSON string whose content is the object, as some models double-encode.
	if t := strings.TrimSpace(text); strings.HasPrefix(t, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(t), &inner); err == nil {
			text = stripFence(inner)
		}
	}
	candidate, ok := locate(text, true)
	if !ok {
		return nil, errors.New("no JSON object found")
	}
	return decode([]byte(candidate))
}

func sanitized(text string) (map[string]any, error) {
	candidate, ok := locate(text, true)
	if !ok {
		return nil, errors.New("no JSON object found")
	}
	return decode(Sanitize(candidate))
}

func repaired(text string) (map[string]any, error) {
	candidate, ok := locate(text, false)
	if !ok {
		return nil, errors.New("no JSON object found")
	}
	return decode(Repair(candidate))
}

func extracted(text string) (map[string]any, error) {
	obj := Extract(text)
	if len(obj) == 0 {
		return nil, errors.New("no key/value pairs found")
	}
	return obj, nil
}

func decode(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case []any:
		if obj, ok := fromEntries(x); ok {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("top-level %T is not an object", v)
}

var (
	entryIDKeys      = []string{"id", "slot", "slotId", "key"}
	entryContentKeys = []string{"content", "text", "value", "copy"}
)

// fromEntries accepts [{"id": "...", "content": "..."}, ...].
func fromEntries(items []any) (map[string]any, bool) {
	out := make(map[string]any, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, false
		}
		id, _ := firstString(m, entryIDKeys)
		if id == "" {
			return nil, false
		}
		if c, ok := firstValue(m, entryContentKeys); ok {
			out[id] = c
		}
	}
	return out, len(out) > 0
}

func firstString(m map[string]any, keys []string) (string, bool) {
	v, ok := firstValue(m, keys)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func firstValue(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// flatten copies scalar and array members of obj into out, then merges the
// members of nested objects. Keys already present are not overwritten.
func flatten(obj map[string]any, out map[string]string) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var nested []map[string]any
	for _, k := range keys {
		switch v := obj[k].(type) {
		case map[string]any:
			nested = append(nested, v)
		case nil:
		default:
			if _, seen := out[k]; seen {
				continue
			}
			if s, ok := scalar(v); ok {
				out[k] = s
			}
		}
	}
	for _, n := range nested {
		flatten(n, out)
	}
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		if x {
			return "true", true
		}
		return "false", true
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := scalar(item); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, "\n"), true
	}
	return "", false
}
