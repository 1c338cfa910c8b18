package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/config"
)

func at(sec int64) time.Time { return time.Unix(sec, 0) }

func msg(id, from, to, text string, sec int64, status string) backend.Message {
	return backend.Message{ID: id, SenderID: from, ContactID: to, Text: text, CreatedAt: at(sec), Status: status}
}

// newestFirst mirrors the backend ordering.
func newestFirst(msgs ...backend.Message) []backend.Message {
	out := make([]backend.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

// "hi" is addressed to A and not read yet, so it counts even though A's
// reply is the newest message.
func TestSummarizeExamples(t *testing.T) {
	m1 := msg("1", "B", "A", "hi", 1, backend.StatusSent)
	m2 := msg("2", "A", "B", "yo", 2, backend.StatusRead)

	got := Summarize("A", newestFirst(m1, m2))
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].CounterpartID != "B" || got[0].LastMessage != "yo" || !got[0].LastMessageTime.Equal(at(2)) || got[0].UnreadCount != 1 {
		t.Errorf("summary = %+v", got[0])
	}

	m3 := msg("3", "B", "A", "[IMAGEM]x", 3, backend.StatusSent)
	got = Summarize("A", newestFirst(m1, m2, m3))
	if got[0].LastMessage != "📷 Imagem" || !got[0].LastMessageTime.Equal(at(3)) || got[0].UnreadCount != 2 {
		t.Errorf("summary after image = %+v", got[0])
	}
}

func TestSummarizeCountsOnlyIncomingUnread(t *testing.T) {
	msgs := newestFirst(
		msg("1", "B", "A", "1", 1, backend.StatusSent),
		msg("2", "B", "A", "2", 2, backend.StatusDelivered),
		msg("3", "B", "A", "3", 3, backend.StatusRead),
		msg("4", "A", "B", "4", 4, backend.StatusSent),
		msg("5", "C", "A", "5", 5, backend.StatusSent),
	)
	got := Summarize("A", msgs)
	want := map[string]int{"B": 2, "C": 1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for _, s := range got {
		if s.UnreadCount != want[s.CounterpartID] {
			t.Errorf("%s unread = %d, want %d", s.CounterpartID, s.UnreadCount, want[s.CounterpartID])
		}
	}
	if got[0].CounterpartID != "C" {
		t.Errorf("first seen = %s, want C", got[0].CounterpartID)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize("A", nil); len(got) != 0 {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}

func TestJoin(t *testing.T) {
	summaries := []Summary{
		{CounterpartID: "C", LastMessage: "c", LastMessageTime: at(30)},
		{CounterpartID: "ghost", LastMessage: "g", LastMessageTime: at(20), UnreadCount: 2},
		{CounterpartID: "B", LastMessage: "b", LastMessageTime: at(10), UnreadCount: 1},
	}
	profiles := []backend.Profile{
		{ID: "B", FullName: "Bruno", AvatarURL: "http://x/b.png", IsVerified: true},
		{ID: "C", FullName: "Carla"},
	}

	t.Run("drop", func(t *testing.T) {
		got := Join(summaries, profiles, config.MissingProfilesDrop)
		if len(got) != 2 || got[0].ID != "C" || got[1].ID != "B" {
			t.Fatalf("contacts = %+v", got)
		}
		if got[0].Avatar != DefaultAvatar {
			t.Errorf("avatar = %q, want default", got[0].Avatar)
		}
		if got[1].Avatar != "http://x/b.png" || !got[1].IsVerified || got[1].UnreadCount != 1 {
			t.Errorf("bruno = %+v", got[1])
		}
		for _, c := range got {
			if c.Online {
				t.Errorf("%s online, presence is not modelled", c.ID)
			}
		}
	})

	t.Run("placeholder", func(t *testing.T) {
		got := Join(summaries, profiles, config.MissingProfilesPlaceholder)
		if len(got) != 3 || got[1].ID != "ghost" {
			t.Fatalf("contacts = %+v", got)
		}
		if got[1].Name != "ghost" || got[1].Avatar != DefaultAvatar || got[1].UnreadCount != 2 {
			t.Errorf("placeholder = %+v", got[1])
		}
	})
}

func TestSortContactsNilTimeLastAndStable(t *testing.T) {
	t1, t2 := at(100), at(100)
	contacts := []Contact{
		{ID: "none"},
		{ID: "x", LastMessageTime: &t1},
		{ID: "y", LastMessageTime: &t2},
	}
	SortContacts(contacts)
	if contacts[0].ID != "x" || contacts[1].ID != "y" || contacts[2].ID != "none" {
		t.Errorf("order = %s %s %s", contacts[0].ID, contacts[1].ID, contacts[2].ID)
	}
}

type scriptedClient struct {
	backend.Client
	msgs        []backend.Message
	profiles    []backend.Profile
	listErr     error
	profilesErr error
	lastQuery   backend.MessageQuery
	profileIDs  []string
}

func (s *scriptedClient) ListMessages(_ context.Context, _ string, q backend.MessageQuery) ([]backend.Message, error) {
	s.lastQuery = q
	return s.msgs, s.listErr
}

func (s *scriptedClient) Profiles(_ context.Context, ids []string) ([]backend.Profile, error) {
	s.profileIDs = ids
	return s.profiles, s.profilesErr
}

func TestAggregatorLoad(t *testing.T) {
	client := &scriptedClient{
		msgs:     newestFirst(msg("1", "B", "A", "hi", 1, backend.StatusSent), msg("2", "A", "C", "yo", 2, backend.StatusSent)),
		profiles: []backend.Profile{{ID: "B", FullName: "Bruno"}, {ID: "C", FullName: "Carla"}},
	}
	agg := NewAggregator(client, config.Default().Client)

	got, err := agg.Load(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "C" || got[1].ID != "B" {
		t.Fatalf("contacts = %+v", got)
	}
	if len(client.profileIDs) != 2 {
		t.Errorf("profile batch = %v", client.profileIDs)
	}
	if !client.lastQuery.Since.IsZero() || client.lastQuery.Limit != 0 {
		t.Errorf("default query should be unbounded: %+v", client.lastQuery)
	}
}

func TestAggregatorLoadEmptyIsNotAnError(t *testing.T) {
	client := &scriptedClient{profilesErr: errors.New("must not be called")}
	got, err := NewAggregator(client, config.Default().Client).Load(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("contacts = %#v, want empty non-nil", got)
	}
	if client.profileIDs != nil {
		t.Error("profiles fetched for empty history")
	}
}

func TestAggregatorLoadFailures(t *testing.T) {
	boom := errors.New("boom")
	history := newestFirst(msg("1", "B", "A", "hi", 1, backend.StatusSent))
	tests := []struct {
		name   string
		client *scriptedClient
	}{
		{"messages", &scriptedClient{listErr: boom}},
		{"profiles", &scriptedClient{msgs: history, profilesErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewAggregator(tt.client, config.Default().Client).Load(context.Background(), "A")
			if !errors.Is(err, boom) {
				t.Errorf("error = %v, want boom", err)
			}
			if got != nil {
				t.Errorf("contacts = %+v, want nil", got)
			}
		})
	}
}

func TestAggregatorWindow(t *testing.T) {
	client := &scriptedClient{}
	opts := config.Default().Client
	opts.HistoryWindow = config.Duration{Duration: 48 * time.Hour}
	opts.HistoryLimit = 500

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(client, opts)
	agg.now = func() time.Time { return now }

	if _, err := agg.Load(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	if want := now.Add(-48 * time.Hour); !client.lastQuery.Since.Equal(want) {
		t.Errorf("since = %v, want %v", client.lastQuery.Since, want)
	}
	if client.lastQuery.Limit != 500 {
		t.Errorf("limit = %d, want 500", client.lastQuery.Limit)
	}
}
