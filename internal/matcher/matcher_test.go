package matcher

import (
	"testing"

	"github.com/modwiki/automod/internal/condition"
	"github.com/modwiki/automod/internal/item"
	"github.com/modwiki/automod/internal/pattern"
)

type fakeUsers struct {
	rank         Rank
	accountAge   int64
	combinedKarma int64
	commentKarma int64
	linkKarma    int64
	isGold       bool
	err          error
}

func (f fakeUsers) Rank(string) (Rank, error)            { return f.rank, f.err }
func (f fakeUsers) AccountAgeDays(string) (int64, error) { return f.accountAge, f.err }
func (f fakeUsers) CombinedKarma(string) (int64, error)  { return f.combinedKarma, f.err }
func (f fakeUsers) CommentKarma(string) (int64, error)   { return f.commentKarma, f.err }
func (f fakeUsers) LinkKarma(string) (int64, error)      { return f.linkKarma, f.err }
func (f fakeUsers) IsGold(string) (bool, error)          { return f.isGold, f.err }

func mustCompile(t *testing.T, keyRaw string, values []string, tokens []string) condition.MatchEntry {
	t.Helper()
	key := pattern.ParseKey(keyRaw)
	c, err := pattern.Compile(key, values, tokens)
	if err != nil {
		t.Fatalf("Compile(%q): %v", keyRaw, err)
	}
	return condition.MatchEntry{Key: key, Regex: c}
}

func TestEvaluateDomainMatch(t *testing.T) {
	c := &condition.Condition{
		Type:    condition.KindSubmission,
		Matches: []condition.MatchEntry{mustCompile(t, "domain", []string{"example.com"}, nil)},
	}
	it := &item.Item{Kind: item.KindSubmission, Domain: "www.example.com", IsSelf: false, URL: "http://www.example.com/x"}

	res, err := Evaluate(c, it, fakeUsers{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected subdomain match against example.com")
	}
}

func TestEvaluateReportsThreshold(t *testing.T) {
	threshold := 3
	c := &condition.Condition{Type: condition.KindBoth, ReportsThreshold: &threshold}
	it := &item.Item{Kind: item.KindSubmission, NumReports: 2}

	res, err := Evaluate(c, it, fakeUsers{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Matched {
		t.Fatalf("expected refusal below reports_threshold")
	}
}

func TestEvaluateBodyPatternAndPlaceholderCapture(t *testing.T) {
	c := &condition.Condition{
		Type:    condition.KindComment,
		Matches: []condition.MatchEntry{mustCompile(t, "body", []string{"(free .*? now)"}, []string{"regex"})},
	}
	it := &item.Item{Kind: item.KindComment, Body: "act now: free money now"}

	res, err := Evaluate(c, it, fakeUsers{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected regex body match")
	}
	if len(res.WinningGroups) < 2 || res.WinningGroups[1] != "free money now" {
		t.Errorf("WinningGroups = %v, want capture of 'free money now'", res.WinningGroups)
	}
}

func TestEvaluateUserConditionsAny(t *testing.T) {
	c := &condition.Condition{
		Type:        condition.KindBoth,
		MustSatisfy: condition.SatisfyAny,
		UserClauses: []condition.UserClause{
			{Attr: condition.AttrIsGold, Op: condition.OpEq, BoolVal: true},
			{Attr: condition.AttrAccountAge, Op: condition.OpLt, IntVal: 7},
		},
	}
	it := &item.Item{Kind: item.KindSubmission, Author: "newbie"}

	res, err := Evaluate(c, it, fakeUsers{isGold: false, accountAge: 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !res.Matched {
		t.Fatalf("expected match: account_age clause satisfies must_satisfy=any")
	}
}

func TestEvaluateUserNotFoundFailsCondition(t *testing.T) {
	c := &condition.Condition{
		Type: condition.KindBoth,
		UserClauses: []condition.UserClause{
			{Attr: condition.AttrAccountAge, Op: condition.OpLt, IntVal: 7},
		},
	}
	it := &item.Item{Kind: item.KindSubmission, Author: "ghost"}

	res, err := Evaluate(c, it, fakeUsers{err: ErrUserNotFound})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Matched {
		t.Fatalf("expected 404-on-user to make condition not apply")
	}
}

func TestEvaluateIgnoreBlockquotes(t *testing.T) {
	c := &condition.Condition{
		Type:              condition.KindComment,
		IgnoreBlockquotes: true,
		BodyMinLength:     intp(5),
	}
	it := &item.Item{Kind: item.KindComment, Body: "> quoted line\n\nhi"}

	res, err := Evaluate(c, it, fakeUsers{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Matched {
		t.Fatalf("expected refusal: body after stripping blockquotes is shorter than min length")
	}
}

func intp(n int) *int { return &n }
