package chat

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/config"
)

// Summary is the per-counterpart result of one pass over a user's messages.
type Summary struct {
	CounterpartID   string
	LastMessage     string
	LastMessageTime time.Time
	UnreadCount     int
}

// Summarize folds msgs, which must be ordered newest first, into one summary
// per counterpart in first-seen order. The first message seen for a
// counterpart is its latest, so it becomes the preview.
func Summarize(userID string, msgs []backend.Message) []Summary {
	index := make(map[string]int)
	var out []Summary
	for _, m := range msgs {
		fromMe := m.SenderID == userID
		other := m.SenderID
		if fromMe {
			other = m.ContactID
		}

		i, seen := index[other]
		if !seen {
			i = len(out)
			index[other] = i
			out = append(out, Summary{
				CounterpartID:   other,
				LastMessage:     Preview(m.Text),
				LastMessageTime: m.CreatedAt,
			})
		}
		if !fromMe && m.Status != backend.StatusRead {
			out[i].UnreadCount++
		}
	}
	return out
}

// Join attaches profiles to summaries and sorts the result by last message
// time, newest first. A summary without a profile is dropped, or kept with
// its id as name when missing is config.MissingProfilesPlaceholder.
func Join(summaries []Summary, profiles []backend.Profile, missing string) []Contact {
	byID := make(map[string]backend.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	contacts := make([]Contact, 0, len(summaries))
	for _, s := range summaries {
		p, ok := byID[s.CounterpartID]
		if !ok {
			if missing != config.MissingProfilesPlaceholder {
				continue
			}
			p = backend.Profile{ID: s.CounterpartID, FullName: s.CounterpartID}
		}
		c := contactFrom(p)
		c.LastMessage = s.LastMessage
		t := s.LastMessageTime
		c.LastMessageTime = &t
		c.UnreadCount = s.UnreadCount
		contacts = append(contacts, c)
	}
	SortContacts(contacts)
	return contacts
}

// SortContacts orders by LastMessageTime descending; contacts without a time
// sort as the epoch. The sort is stable.
func SortContacts(contacts []Contact) {
	slices.SortStableFunc(contacts, func(a, b Contact) int {
		return cmp.Compare(lastMillis(b), lastMillis(a))
	})
}

func lastMillis(c Contact) int64 {
	if c.LastMessageTime == nil {
		return 0
	}
	return c.LastMessageTime.UnixMilli()
}

// Aggregator builds the recent chats list from the backend.
type Aggregator struct {
	client backend.Client
	opts   config.Client
	now    func() time.Time
}

// NewAggregator creates an aggregator. opts narrows the message query and
// picks the missing-profile policy.
func NewAggregator(client backend.Client, opts config.Client) *Aggregator {
	return &Aggregator{client: client, opts: opts, now: time.Now}
}

// Load fetches userID's messages and counterpart profiles and returns the
// joined, sorted contact list. Zero messages yield an empty list. Any query
// failure aborts the whole load.
func (a *Aggregator) Load(ctx context.Context, userID string) ([]Contact, error) {
	q := backend.MessageQuery{Limit: a.opts.HistoryLimit}
	if w := a.opts.HistoryWindow.Duration; w > 0 {
		q.Since = a.now().Add(-w)
	}

	msgs, err := a.client.ListMessages(ctx, userID, q)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(msgs) == 0 {
		return []Contact{}, nil
	}

	summaries := Summarize(userID, msgs)
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.CounterpartID
	}

	profiles, err := a.client.Profiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	return Join(summaries, profiles, a.opts.MissingProfiles), nil
}
