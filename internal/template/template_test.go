package template

import (
	"strings"
	"testing"

	"github.com/modwiki/automod/internal/item"
)

func TestExpandFieldsAndCapture(t *testing.T) {
	it := &item.Item{
		Kind: item.KindSubmission, Domain: "bad.com", Author: "", LinkID: "t3_abc123",
		Title: "hello", URL: "http://bad.com/x", Permalink: "/r/x/comments/abc", Subreddit: "x",
	}
	ctx := Context{Item: it, Groups: []string{"bad.com/x", "x"}}

	got := Expand("domain {{domain}} user {{user}} link {{link_id}} cap {{match-1}}", ctx)
	want := "domain bad.com user [deleted] link abc123 cap x"
	if got != want {
		t.Errorf("Expand = %q, want %q", got, want)
	}
}

func TestExpandUnknownPlaceholderResolvesEmpty(t *testing.T) {
	got := Expand("{{nonsense}}", Context{Item: &item.Item{}})
	if got != "" {
		t.Errorf("known-shaped but unrecognized field should resolve empty, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 200)
	if got := TruncateSubject(long); len(got) != 100 {
		t.Errorf("TruncateSubject len = %d, want 100", len(got))
	}
	longer := strings.Repeat("b", 10050)
	if got := TruncateBody(longer); len(got) != 10000 {
		t.Errorf("TruncateBody len = %d, want 10000", len(got))
	}
}

func TestEnsurePermalink(t *testing.T) {
	body := "please review"
	got := EnsurePermalink(body, "/r/x/comments/1")
	if !strings.HasPrefix(got, "/r/x/comments/1") {
		t.Errorf("EnsurePermalink did not prepend: %q", got)
	}

	already := "/r/x/comments/1 please review"
	if got := EnsurePermalink(already, "/r/x/comments/1"); got != already {
		t.Errorf("EnsurePermalink should not duplicate an existing permalink: %q", got)
	}
}
