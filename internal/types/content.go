package types

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ContentMap maps slot ids to generated text, remembering insertion order.
// The zero value is ready to use.
type ContentMap struct {
	keys   []string
	values map[string]string
}

func NewContentMap() *ContentMap {
	return &ContentMap{values: make(map[string]string)}
}

// Set stores value under id. Re-setting an id keeps its original position.
func (c *ContentMap) Set(id, value string) {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	if _, ok := c.values[id]; !ok {
		c.keys = append(c.keys, id)
	}
	c.values[id] = value
}

func (c *ContentMap) Get(id string) (string, bool) {
	if c == nil || c.values == nil {
		return "", false
	}
	v, ok := c.values[id]
	return v, ok
}

func (c *ContentMap) Has(id string) bool {
	_, ok := c.Get(id)
	return ok
}

func (c *ContentMap) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns ids in insertion order.
func (c *ContentMap) Keys() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.keys...)
}

// Map returns a copy as a plain map.
func (c *ContentMap) Map() map[string]string {
	out := make(map[string]string, c.Len())
	if c == nil {
		return out
	}
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// MarshalJSON writes the object with keys in insertion order.
func (c *ContentMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c != nil {
		for i, k := range c.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(c.values[k])
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			buf.Write(vb)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat string object, keeping document order.
func (c *ContentMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("types: content map must be a JSON object")
	}
	*c = ContentMap{values: make(map[string]string)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var v string
		if err := dec.Decode(&v); err != nil {
			return err
		}
		c.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
