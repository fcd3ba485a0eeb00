package standards

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/modwiki/automod/internal/yamldoc"
)

func mustSection(t *testing.T, raw string) (yamldoc.Section, *yaml.Node) {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	yamldoc.LowercaseKeysRecursively(&doc)
	sec, ok := yamldoc.Decode(&doc)
	if !ok {
		t.Fatalf("not a mapping section")
	}
	return sec, &doc
}
