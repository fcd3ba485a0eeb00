package standards

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/modwiki/automod/internal/yamldoc"
)

// Overlay resolves a rule section's "standard: <name>" reference (if any)
// against the cache and returns a new section with the standard's entries
// as a base, the rule's own entries overlaid on top key-by-key. A rule key
// that also appears in the standard replaces it outright; keys unique to
// either side pass through unchanged. This is spec §4.3's "deep overlay",
// scoped to one mapping level: match-keys, user_conditions, and the
// action block are each replaced wholesale by the rule when present,
// never merged field-by-field within themselves.
func (c *Cache) Overlay(rule yamldoc.Section) (yamldoc.Section, error) {
	name, err := rule.String("standard")
	if err != nil {
		return yamldoc.Section{}, err
	}
	if name == "" {
		return rule, nil
	}

	frag, ok := c.Get(name)
	if !ok {
		return yamldoc.Section{}, fmt.Errorf("standards: unknown standard %q", name)
	}

	merged := append([]yamldoc.Entry(nil), frag.Section.Entries...)
	for _, e := range rule.Entries {
		if e.Key == "standard" || e.Key == "name" {
			continue
		}
		merged = replaceOrAppend(merged, e)
	}
	return yamldoc.Section{Entries: merged}, nil
}

func replaceOrAppend(entries []yamldoc.Entry, e yamldoc.Entry) []yamldoc.Entry {
	for i, existing := range entries {
		if existing.Key == e.Key {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}

// CloneNode returns a deep copy of a yaml.Node tree, used when a fragment
// must be embedded into another document without aliasing mutable state.
func CloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Content = make([]*yaml.Node, len(n.Content))
	for i, c := range n.Content {
		out.Content[i] = CloneNode(c)
	}
	return &out
}
