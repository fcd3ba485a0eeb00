// Package standards implements the Standards Cache (spec §4.3): a
// process-wide table of named YAML fragments, published from the
// standards community's wiki, that rule sections reference via a
// top-level "standard: <name>" key and deep-overlay onto their own
// fields. Grounded on the teacher's analyzer/registry.go (a process-wide,
// refresh-on-demand registry of named analyzers) and pack.go's
// merge-on-refresh shape for the overlay semantics.
package standards

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/modwiki/automod/internal/yamldoc"
)

// Fragment is one named standard condition: the raw YAML node (kept so
// overlay can merge unknown/future keys losslessly) plus its decoded
// Section for deep-overlay application.
type Fragment struct {
	Name    string
	Node    *yaml.Node
	Section yamldoc.Section
}

// Cache holds the current published set of standard condition fragments.
// A single Cache is constructed once per process (see internal/automodctx)
// and shared by every community's Rule-Set Loader invocation.
type Cache struct {
	mu             sync.RWMutex
	fragments      map[string]Fragment
	version        int
	updateRequired bool
}

// New returns an empty Cache. Call Refresh to populate it from the
// standards community's wiki content.
func New() *Cache {
	return &Cache{fragments: map[string]Fragment{}}
}

// Get returns the named standard fragment, if published.
func (c *Cache) Get(name string) (Fragment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.fragments[name]
	return f, ok
}

// Version returns the cache's monotonically increasing publish counter,
// bumped on every successful Refresh whose content actually changed.
func (c *Cache) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// MarkUpdateRequired forces the next Refresh to republish even if the
// fetched content is byte-identical to what's cached — spec §4.3's
// "update_required" flag. The inbox's update_standards path does not set
// it; it calls Refresh directly.
func (c *Cache) MarkUpdateRequired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateRequired = true
}

// Refresh parses raw YAML stream content (one or more "name: <fragment>"
// documents) and atomically republishes the fragment table. It reports
// whether the cache content actually changed, per spec §4.3's
// value-based-comparison resolution: a refresh that fetches the same
// content as before is a no-op unless updateRequired was set.
func (c *Cache) Refresh(raw string) (changed bool, err error) {
	parsed, err := parseFragments(raw)
	if err != nil {
		return false, fmt.Errorf("standards: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	changed = c.updateRequired || !sameFragments(c.fragments, parsed)
	if changed {
		c.fragments = parsed
		c.version++
	}
	c.updateRequired = false
	return changed, nil
}

func parseFragments(raw string) (map[string]Fragment, error) {
	dec := yaml.NewDecoder(strings.NewReader(raw))

	out := map[string]Fragment{}
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
		name, err := sec.String("name")
		if err != nil || name == "" {
			continue
		}
		node := doc.Content[0]
		out[name] = Fragment{Name: name, Node: node, Section: sec}
	}
	return out, nil
}

func sameFragments(a, b map[string]Fragment) bool {
	if len(a) != len(b) {
		return false
	}
	for name, fa := range a {
		fb, ok := b[name]
		if !ok {
			return false
		}
		ma, err1 := yaml.Marshal(fa.Node)
		mb, err2 := yaml.Marshal(fb.Node)
		if err1 != nil || err2 != nil || string(ma) != string(mb) {
			return false
		}
	}
	return true
}
