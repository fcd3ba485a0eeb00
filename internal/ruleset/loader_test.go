package ruleset

import (
	"strings"
	"testing"

	"github.com/modwiki/automod/internal/condition"
	"github.com/modwiki/automod/internal/standards"
)

const sampleDoc = `
type: submission
domain: ['example.com', 'badsite.net']
action: remove
comment: |
  Your submission links a disallowed domain.
report_reason: "Disallowed domain: {{domain}}"
---
type: comment
body: ['spam phrase']
modifiers: [full-text]
action: remove
`

func TestLoadCompilesInOrder(t *testing.T) {
	l := NewLoader(standards.New())
	conds, err := l.Load(sampleDoc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(conds) != 2 {
		t.Fatalf("got %d conditions, want 2", len(conds))
	}
	if conds[0].Type != condition.KindSubmission {
		t.Errorf("first condition type = %v, want submission", conds[0].Type)
	}
	if conds[1].Type != condition.KindComment {
		t.Errorf("second condition type = %v, want comment", conds[1].Type)
	}
	if !strings.Contains(conds[0].YAMLSource, "domain") {
		t.Errorf("yaml_source missing original key: %q", conds[0].YAMLSource)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	l := NewLoader(standards.New())
	_, err := l.Load("type: submission\nbogus_key: foo\naction: remove\n")
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadAppliesStandardsOverlay(t *testing.T) {
	sc := standards.New()
	if _, err := sc.Refresh("name: base\naction: remove\nreport_reason: spam link\n"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	l := NewLoader(sc)

	conds, err := l.Load("standard: base\ntype: submission\ndomain: [bad.com]\n")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(conds) != 1 {
		t.Fatalf("got %d conditions, want 1", len(conds))
	}
	if conds[0].Action != condition.ActionRemove {
		t.Errorf("action = %v, want inherited remove", conds[0].Action)
	}
	if conds[0].ReportReason != "spam link" {
		t.Errorf("report_reason = %q, want inherited %q", conds[0].ReportReason, "spam link")
	}
}

func TestBuildPerQueueFilter(t *testing.T) {
	l := NewLoader(standards.New())
	conds, err := l.Load(sampleDoc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	set := Build(conds, 1)

	if len(set.ByQueue["submission"]) != 1 {
		t.Errorf("submission queue has %d conditions, want 1", len(set.ByQueue["submission"]))
	}
	if len(set.ByQueue["comment"]) != 1 {
		t.Errorf("comment queue has %d conditions, want 1", len(set.ByQueue["comment"]))
	}
	if len(set.ByQueue["spam"]) != 2 {
		t.Errorf("spam queue has %d conditions, want 2 (both below reports threshold, neither purely-report)", len(set.ByQueue["spam"]))
	}
}
