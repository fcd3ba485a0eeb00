package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/modwiki/automod/internal/item"
	"github.com/modwiki/automod/internal/ruleset"
	"github.com/modwiki/automod/internal/source"
)

type fakeClient struct {
	messages []source.Message
	mods     map[string][]string
	doCalls  []source.ActionRequest
}

func (f *fakeClient) FetchQueue(context.Context, string, source.Queue, time.Time, int) ([]item.Item, error) {
	return nil, nil
}

func (f *fakeClient) FetchUser(context.Context, string) (*source.User, error) { return nil, nil }

func (f *fakeClient) FetchModerators(_ context.Context, community string) ([]string, error) {
	return f.mods[community], nil
}
func (f *fakeClient) FetchContributors(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeClient) FetchWikiPage(context.Context, string, string) (string, error) {
	return "", nil
}
func (f *fakeClient) FetchInbox(_ context.Context, after time.Time) ([]source.Message, error) {
	var out []source.Message
	for _, m := range f.messages {
		if m.CreatedUTC.After(after) {
			out = append(out, m)
		}
	}
	return out, nil
}
func (f *fakeClient) Do(_ context.Context, req source.ActionRequest) error {
	f.doCalls = append(f.doCalls, req)
	return nil
}

type fakeStore struct {
	communities map[string]ruleset.Community
}

func (s *fakeStore) GetCommunity(name string) (ruleset.Community, bool, error) {
	c, ok := s.communities[name]
	return c, ok, nil
}
func (s *fakeStore) PutCommunity(c ruleset.Community) error {
	if s.communities == nil {
		s.communities = map[string]ruleset.Community{}
	}
	s.communities[c.Name] = c
	return nil
}
func (s *fakeStore) ListCommunities() ([]ruleset.Community, error) { return nil, nil }
func (s *fakeStore) GetStandardsYAML() (string, error)             { return "", nil }
func (s *fakeStore) PutStandardsYAML(string) error                 { return nil }

func TestProcessUpdateByModerator(t *testing.T) {
	client := &fakeClient{
		messages: []source.Message{
			{Fullname: "t4_1", Author: "mod1", Subject: "askhistory", Body: "update", CreatedUTC: time.Unix(100, 0)},
		},
		mods: map[string][]string{"askhistory": {"mod1", "mod2"}},
	}
	refreshed := ""
	p := &Processor{
		Client: client,
		Store:  &fakeStore{},
		RefreshCommunity: func(_ context.Context, community, sender string) error {
			refreshed = community
			return nil
		},
	}

	result, err := p.Process(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if refreshed != "askhistory" {
		t.Errorf("refreshed = %q, want askhistory", refreshed)
	}
	if len(result.Updated) != 1 || result.Updated[0] != "askhistory" {
		t.Errorf("result.Updated = %v", result.Updated)
	}
	if len(client.doCalls) != 1 || client.doCalls[0].Kind != source.ActionMarkRead {
		t.Errorf("doCalls = %+v, want one mark_read", client.doCalls)
	}
}

func TestProcessUpdateDeniedForNonModerator(t *testing.T) {
	client := &fakeClient{
		messages: []source.Message{
			{Fullname: "t4_2", Author: "rando", Subject: "askhistory", Body: "update", CreatedUTC: time.Unix(100, 0)},
		},
		mods: map[string][]string{"askhistory": {"mod1"}},
	}
	called := false
	p := &Processor{
		Client: client,
		Store:  &fakeStore{},
		RefreshCommunity: func(context.Context, string, string) error {
			called = true
			return nil
		},
	}

	if _, err := p.Process(context.Background(), time.Time{}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if called {
		t.Error("RefreshCommunity should not be called for a non-moderator sender")
	}
}

func TestProcessUpdateStandardsRestrictedToStandardsCommunity(t *testing.T) {
	client := &fakeClient{
		messages: []source.Message{
			{Fullname: "t4_3", Author: "owner1", Subject: "otherplace", Body: "update_standards", CreatedUTC: time.Unix(100, 0)},
		},
	}
	called := false
	p := &Processor{
		Client:             client,
		Store:              &fakeStore{},
		Owner:              "owner1",
		StandardsCommunity: "automodstandards",
		RefreshStandards: func(context.Context, string) error {
			called = true
			return nil
		},
	}

	if _, err := p.Process(context.Background(), time.Time{}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if called {
		t.Error("RefreshStandards should not fire outside the configured standards community")
	}
}

func TestProcessSleepOnlyFromOwner(t *testing.T) {
	client := &fakeClient{
		messages: []source.Message{
			{Fullname: "t4_4", Author: "owner1", Subject: "sleep", Body: "", CreatedUTC: time.Unix(100, 0)},
		},
	}
	var slept time.Duration
	p := &Processor{
		Client: client,
		Store:  &fakeStore{},
		Owner:  "owner1",
		Sleep:  func(d time.Duration) { slept = d },
	}

	if _, err := p.Process(context.Background(), time.Time{}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if slept != 10*time.Second {
		t.Errorf("slept = %v, want 10s", slept)
	}
}

func TestProcessInvitationAddsCommunity(t *testing.T) {
	client := &fakeClient{
		messages: []source.Message{
			{Fullname: "t4_5", Subject: "invitation to moderate /r/newplace", CreatedUTC: time.Unix(100, 0)},
		},
	}
	store := &fakeStore{}
	p := &Processor{Client: client, Store: store}

	result, err := p.Process(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(result.InvitesAccepted) != 1 || result.InvitesAccepted[0] != "newplace" {
		t.Fatalf("InvitesAccepted = %v", result.InvitesAccepted)
	}
	c, ok, _ := store.GetCommunity("newplace")
	if !ok || !c.Enabled {
		t.Errorf("expected newplace to be stored enabled, got %+v ok=%v", c, ok)
	}
}

func TestProcessAdvancesCursorToNewestMessage(t *testing.T) {
	client := &fakeClient{
		messages: []source.Message{
			{Fullname: "t4_6", Subject: "x", Body: "update", CreatedUTC: time.Unix(100, 0)},
			{Fullname: "t4_7", Subject: "x", Body: "update", CreatedUTC: time.Unix(200, 0)},
		},
	}
	p := &Processor{Client: client, Store: &fakeStore{}}

	result, err := p.Process(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.NewCursor.Equal(time.Unix(200, 0)) {
		t.Errorf("NewCursor = %v, want %v", result.NewCursor, time.Unix(200, 0))
	}
}
