// Package yamldoc provides a thin, order-preserving view over one YAML
// mapping node. The rule documents this engine ingests are hand-edited on
// wiki pages, so key order matters (spec §4.4 step 6: match-keys evaluate
// "in insertion order") and is preserved end to end instead of being lost
// to Go map iteration order, the way a plain map[string]interface{} would.
package yamldoc

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one key/value pair from a YAML mapping, in document order.
type Entry struct {
	Key   string
	Value *yaml.Node
}

// Section is an ordered YAML mapping: one rule fragment or one standard
// condition fragment.
type Section struct {
	Entries []Entry
}

// Decode walks a YAML mapping node into an ordered Section. Non-mapping
// nodes yield an empty Section with ok=false — spec §4.7 says non-mapping
// stream documents are comments and are skipped by the caller.
func Decode(node *yaml.Node) (Section, bool) {
	n := node
	for n != nil && n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n == nil || n.Kind != yaml.MappingNode {
		return Section{}, false
	}

	var sec Section
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode := n.Content[i]
		sec.Entries = append(sec.Entries, Entry{
			Key:   strings.ToLower(keyNode.Value),
			Value: n.Content[i+1],
		})
	}
	return sec, true
}

// Get returns the value node for key, and whether it was present. If key
// appears more than once, the last occurrence wins (matching typical YAML
// mapping semantics under key-case-folding).
func (s Section) Get(key string) (*yaml.Node, bool) {
	var found *yaml.Node
	ok := false
	for _, e := range s.Entries {
		if e.Key == key {
			found = e.Value
			ok = true
		}
	}
	return found, ok
}

// Has reports whether key is present.
func (s Section) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// String decodes key's value as a scalar string. Returns "" if absent.
func (s Section) String(key string) (string, error) {
	v, ok := s.Get(key)
	if !ok {
		return "", nil
	}
	var out string
	if err := v.Decode(&out); err != nil {
		return "", err
	}
	return out, nil
}

// Int decodes key's value as an integer. Returns ok=false if absent.
func (s Section) Int(key string) (int, bool, error) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false, nil
	}
	switch v.Kind {
	case yaml.ScalarNode:
		n, err := strconv.Atoi(strings.TrimSpace(v.Value))
		if err != nil {
			return 0, true, err
		}
		return n, true, nil
	}
	return 0, true, &TypeError{Key: key, Want: "int"}
}

// Bool decodes key's value as a boolean. Returns ok=false if absent.
func (s Section) Bool(key string) (bool, bool, error) {
	v, ok := s.Get(key)
	if !ok {
		return false, false, nil
	}
	var out bool
	if err := v.Decode(&out); err != nil {
		return false, true, &TypeError{Key: key, Want: "bool"}
	}
	return out, true, nil
}

// StringList decodes key's value as a list of strings. A bare scalar
// coerces to a one-element list, matching the YAML rule format's
// tolerance for "domain: example.com" vs "domain: [a.com, b.com]".
func (s Section) StringList(key string) ([]string, error) {
	v, ok := s.Get(key)
	if !ok {
		return nil, nil
	}
	return DecodeStringList(v)
}

// DecodeStringList coerces a scalar-or-sequence YAML node into a []string.
func DecodeStringList(v *yaml.Node) ([]string, error) {
	switch v.Kind {
	case yaml.ScalarNode:
		var s string
		if err := v.Decode(&s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(v.Content))
		for _, item := range v.Content {
			var s string
			if err := item.Decode(&s); err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, &TypeError{Want: "string or list"}
}

// TypeError reports a value that did not match its expected shape.
type TypeError struct {
	Key  string
	Want string
}

func (e *TypeError) Error() string {
	if e.Key == "" {
		return "expected " + e.Want
	}
	return "key " + e.Key + ": expected " + e.Want
}

// LowercaseKeysRecursively lowercases every mapping key in the node tree,
// in place. Values are left untouched except where they are themselves
// mappings (modifiers-by-match-key, user_conditions).
func LowercaseKeysRecursively(node *yaml.Node) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range node.Content {
			LowercaseKeysRecursively(c)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			node.Content[i].Value = strings.ToLower(node.Content[i].Value)
			LowercaseKeysRecursively(node.Content[i+1])
		}
	}
}
