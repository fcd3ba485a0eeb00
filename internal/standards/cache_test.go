package standards

import "testing"

func TestRefreshChangeDetection(t *testing.T) {
	c := New()

	changed, err := c.Refresh("name: spam_links\nlink_flair_text: spam\n---\nname: other\naction: remove\n")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !changed {
		t.Fatalf("first refresh should report changed")
	}
	if v := c.Version(); v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}

	changed, err = c.Refresh("name: spam_links\nlink_flair_text: spam\n---\nname: other\naction: remove\n")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if changed {
		t.Fatalf("identical refresh should not report changed")
	}
	if v := c.Version(); v != 1 {
		t.Fatalf("version = %d, want unchanged at 1", v)
	}

	c.MarkUpdateRequired()
	changed, err = c.Refresh("name: spam_links\nlink_flair_text: spam\n---\nname: other\naction: remove\n")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !changed {
		t.Fatalf("update_required should force republish even on identical content")
	}
	if v := c.Version(); v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
}

func TestGetMissing(t *testing.T) {
	c := New()
	if _, ok := c.Get("nope"); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestOverlayMergesAndOverrides(t *testing.T) {
	c := New()
	if _, err := c.Refresh("name: spam_links\naction: remove\nreport_reason: spam\n"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var doc struct{}
	_ = doc

	ruleYAML := "standard: spam_links\naction: approve\n"
	rule, node := mustSection(t, ruleYAML)
	_ = node

	merged, err := c.Overlay(rule)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	action, err := merged.String("action")
	if err != nil {
		t.Fatalf("String(action): %v", err)
	}
	if action != "approve" {
		t.Fatalf("action = %q, want rule override %q", action, "approve")
	}

	reason, err := merged.String("report_reason")
	if err != nil {
		t.Fatalf("String(report_reason): %v", err)
	}
	if reason != "spam" {
		t.Fatalf("report_reason = %q, want inherited %q", reason, "spam")
	}
}

func TestOverlayUnknownStandard(t *testing.T) {
	c := New()
	rule, _ := mustSection(t, "standard: missing\naction: remove\n")
	if _, err := c.Overlay(rule); err == nil {
		t.Fatalf("expected error for unknown standard")
	}
}
