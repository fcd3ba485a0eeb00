package ruleset

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/modwiki/automod/internal/condition"
	"github.com/modwiki/automod/internal/standards"
	"github.com/modwiki/automod/internal/validate"
	"github.com/modwiki/automod/internal/yamldoc"
)

// Loader compiles rule documents into published Sets. Grounded on the
// teacher's policy.Load + pack.LoadPacks: parse, validate every section
// before compiling any of them, and only ever replace a community's rule
// list wholesale.
type Loader struct {
	Standards *standards.Cache
}

// NewLoader constructs a Loader against a shared Standards Cache.
func NewLoader(sc *standards.Cache) *Loader {
	return &Loader{Standards: sc}
}

// Load parses a rule document (a YAML stream of mappings), validates and
// compiles every section, and returns the full compiled list in document
// order. Any single section's validation or compilation failure aborts
// the whole update and returns a *validate.Error identifying the failing
// section, per spec §4.7.
func (l *Loader) Load(raw string) ([]*condition.Condition, error) {
	sections, err := parseSections(raw)
	if err != nil {
		return nil, fmt.Errorf("ruleset: parsing document: %w", err)
	}

	conditions := make([]*condition.Condition, 0, len(sections))
	for idx, sec := range sections {
		resolved := sec
		if l.Standards != nil {
			resolved, err = l.Standards.Overlay(sec)
			if err != nil {
				return nil, &validate.Error{Issues: []validate.Issue{{Section: idx, Message: err.Error()}}}
			}
		}

		if err := validate.Section(idx, resolved); err != nil {
			return nil, err
		}

		src, err := canonicalYAML(resolved)
		if err != nil {
			return nil, fmt.Errorf("ruleset: section %d: canonicalizing: %w", idx, err)
		}

		c, err := condition.Build(resolved, src)
		if err != nil {
			return nil, &validate.Error{Issues: []validate.Issue{{Section: idx, Message: err.Error()}}}
		}
		conditions = append(conditions, c)
	}
	return conditions, nil
}

// LoadStandards parses a standards document identically (each section must
// carry a "name") and republishes the Standards Cache, returning whether
// the content actually changed.
func (l *Loader) LoadStandards(raw string) (changed bool, err error) {
	return l.Standards.Refresh(raw)
}

// parseSections decodes a "---"-separated YAML stream into ordered,
// lowercased Sections. Non-mapping documents (spec §4.7: "comments") are
// silently skipped.
func parseSections(raw string) ([]yamldoc.Section, error) {
	dec := yaml.NewDecoder(strings.NewReader(raw))

	var out []yamldoc.Section
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		yamldoc.LowercaseKeysRecursively(&doc)
		sec, ok := yamldoc.Decode(&doc)
		if !ok {
			continue
		}
		out = append(out, sec)
	}
	return out, nil
}

// canonicalYAML re-serializes a resolved section back to YAML text, used
// as the action log's idempotence key (spec §3, §8: "yaml_source").
// Re-encoding from the ordered Section, rather than keeping the original
// substring, is what makes a standards-overlaid rule's logged key reflect
// the fragment actually evaluated.
func canonicalYAML(sec yamldoc.Section) (string, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range sec.Entries {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key}
		node.Content = append(node.Content, keyNode, e.Value)
	}
	b, err := yaml.Marshal(node)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
