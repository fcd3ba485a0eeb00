package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/modwiki/automod/internal/actionlog"
	"github.com/modwiki/automod/internal/condition"
	"github.com/modwiki/automod/internal/executor"
	"github.com/modwiki/automod/internal/item"
	"github.com/modwiki/automod/internal/matcher"
	"github.com/modwiki/automod/internal/pattern"
	"github.com/modwiki/automod/internal/ruleset"
	"github.com/modwiki/automod/internal/source"
)

type fakeUsers struct{}

func (fakeUsers) Rank(string) (matcher.Rank, error)      { return matcher.RankUser, nil }
func (fakeUsers) AccountAgeDays(string) (int64, error)   { return 0, nil }
func (fakeUsers) CombinedKarma(string) (int64, error)    { return 0, nil }
func (fakeUsers) CommentKarma(string) (int64, error)     { return 0, nil }
func (fakeUsers) LinkKarma(string) (int64, error)        { return 0, nil }
func (fakeUsers) IsGold(string) (bool, error)            { return false, nil }

type fakeClient struct {
	items []item.Item
	calls []source.ActionRequest
}

func (f *fakeClient) FetchQueue(context.Context, string, source.Queue, time.Time, int) ([]item.Item, error) {
	return f.items, nil
}
func (f *fakeClient) FetchUser(context.Context, string) (*source.User, error)      { return nil, nil }
func (f *fakeClient) FetchModerators(context.Context, string) ([]string, error)    { return nil, nil }
func (f *fakeClient) FetchContributors(context.Context, string) ([]string, error)  { return nil, nil }
func (f *fakeClient) FetchWikiPage(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeClient) FetchInbox(context.Context, time.Time) ([]source.Message, error) { return nil, nil }
func (f *fakeClient) Do(ctx context.Context, req source.ActionRequest) error {
	f.calls = append(f.calls, req)
	return nil
}

func newTestDispatcher(client *fakeClient) *Dispatcher {
	log := actionlog.NewMemStore()
	exec := executor.New(client, log, nil)
	return New(client, log, exec, func(context.Context, string) matcher.UserLookup { return fakeUsers{} })
}

func TestRunQueueShortCircuitsOnFirstRemovalMatch(t *testing.T) {
	removeAll := &condition.Condition{Type: condition.KindSubmission, Action: condition.ActionRemove, Priority: 10}
	spamAll := &condition.Condition{Type: condition.KindSubmission, Action: condition.ActionSpam, Priority: 5}

	client := &fakeClient{items: []item.Item{{Fullname: "t3_a", Kind: item.KindSubmission, Created: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)}}}
	d := newTestDispatcher(client)

	set := &ruleset.Set{ByQueue: map[string][]*condition.Condition{"submission": {removeAll, spamAll}}}
	community := ruleset.Community{Name: "test"}

	if _, err := d.RunQueue(context.Background(), community, source.QueueSubmission, set, time.Time{}, 25); err != nil {
		t.Fatalf("RunQueue: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("calls = %+v, want exactly one (short-circuit on first removal match)", client.calls)
	}
}

func TestRunQueueEvaluatesOtherPassAfterRemoval(t *testing.T) {
	removeDomain := &condition.Condition{Type: condition.KindSubmission, Action: condition.ActionRemove, Priority: 10,
		Matches: []condition.MatchEntry{mustMatch(t, "domain", []string{"notmatched.example"})}}
	reportAll := &condition.Condition{Type: condition.KindSubmission, Action: condition.ActionReport, Priority: 1, ReportReason: "flagged"}

	client := &fakeClient{items: []item.Item{{Fullname: "t3_b", Kind: item.KindSubmission, Domain: "other.com"}}}
	d := newTestDispatcher(client)

	set := &ruleset.Set{ByQueue: map[string][]*condition.Condition{"submission": {removeDomain, reportAll}}}
	community := ruleset.Community{Name: "test"}

	if _, err := d.RunQueue(context.Background(), community, source.QueueSubmission, set, time.Time{}, 25); err != nil {
		t.Fatalf("RunQueue: %v", err)
	}
	if len(client.calls) != 1 || client.calls[0].Kind != source.ActionReport {
		t.Fatalf("calls = %+v, want one report (removal pass had no match)", client.calls)
	}
}

func TestRunQueueAdvancesWatermarkExceptApprovedSubmission(t *testing.T) {
	later := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	approved := item.Item{Fullname: "t3_c", Kind: item.KindSubmission, Approved: true, Created: later}

	client := &fakeClient{items: []item.Item{approved}}
	d := newTestDispatcher(client)
	set := &ruleset.Set{ByQueue: map[string][]*condition.Condition{}}
	community := ruleset.Community{Name: "test"}

	wm, err := d.RunQueue(context.Background(), community, source.QueueSubmission, set, time.Time{}, 25)
	if err != nil {
		t.Fatalf("RunQueue: %v", err)
	}
	if !wm.IsZero() {
		t.Errorf("watermark = %v, want unchanged (zero) for approved submission", wm)
	}
}

type fakeRecorder struct {
	evaluated int
	matched   int
	depth     map[string]int
}

func (f *fakeRecorder) ItemEvaluated(string, string)  { f.evaluated++ }
func (f *fakeRecorder) ConditionMatched(string)        { f.matched++ }
func (f *fakeRecorder) PollError(string, string)       {}
func (f *fakeRecorder) SetQueueDepth(community, queue string, depth int) {
	if f.depth == nil {
		f.depth = map[string]int{}
	}
	f.depth[community+"/"+queue] = depth
}

func TestRunQueueRecordsMetrics(t *testing.T) {
	removeAll := &condition.Condition{Type: condition.KindSubmission, Action: condition.ActionRemove, Priority: 10}
	client := &fakeClient{items: []item.Item{{Fullname: "t3_m", Kind: item.KindSubmission, Subreddit: "test"}}}
	d := newTestDispatcher(client)
	rec := &fakeRecorder{}
	d.Metrics = rec

	set := &ruleset.Set{ByQueue: map[string][]*condition.Condition{"submission": {removeAll}}}
	community := ruleset.Community{Name: "test"}

	if _, err := d.RunQueue(context.Background(), community, source.QueueSubmission, set, time.Time{}, 25); err != nil {
		t.Fatalf("RunQueue: %v", err)
	}
	if rec.evaluated != 1 {
		t.Errorf("evaluated = %d, want 1", rec.evaluated)
	}
	if rec.matched != 1 {
		t.Errorf("matched = %d, want 1", rec.matched)
	}
	if rec.depth["test/submission"] != 1 {
		t.Errorf("depth = %+v, want test/submission=1", rec.depth)
	}
}

func mustMatch(t *testing.T, key string, values []string) condition.MatchEntry {
	t.Helper()
	k := pattern.ParseKey(key)
	c, err := pattern.Compile(k, values, nil)
	if err != nil {
		t.Fatalf("compiling match entry: %v", err)
	}
	return condition.MatchEntry{Key: k, Regex: c}
}
