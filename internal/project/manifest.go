package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Manifest is a package.json object that keeps its keys in file order, so
// rewriting a few fields leaves the rest of the document as the build wrote it.
type Manifest struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{values: make(map[string]json.RawMessage)}
}

// ParseManifest decodes a top-level JSON object, preserving key order.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("parse manifest: expected a JSON object")
	}

	m := NewManifest()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse manifest: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parse manifest: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse manifest: value of %q: %w", key, err)
		}
		if _, seen := m.values[key]; !seen {
			m.keys = append(m.keys, key)
		}
		m.values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Get returns the raw JSON value stored under key.
func (m *Manifest) Get(key string) (json.RawMessage, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (m *Manifest) Set(key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = raw
	return nil
}

// Keys returns the keys in document order.
func (m *Manifest) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Pretty renders the manifest with two-space indentation and no trailing
// newline.
func (m *Manifest) Pretty() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			compact.WriteByte(',')
		}
		k, err := encode(key)
		if err != nil {
			return nil, err
		}
		compact.Write(k)
		compact.WriteByte(':')
		if err := json.Compact(&compact, m.values[key]); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// encode marshals v without HTML escaping, as npm and node would write it.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// publishConfig is the npm publishConfig block written into dist manifests.
type publishConfig struct {
	Registry string `json:"registry"`
	Access   string `json:"access"`
	Tag      string `json:"tag"`
}

// manifestDiff renders a unified diff between the previous and the new
// manifest content. Empty when they are equal.
func manifestDiff(name string, before, after []byte) string {
	if bytes.Equal(before, after) {
		return ""
	}
	fromFile := "a/" + name
	if len(before) == 0 {
		fromFile = "/dev/null"
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: fromFile,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return strings.TrimRight(diff, "\n")
}

// atomicWrite writes data to a temp file next to path and renames it in place.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}
