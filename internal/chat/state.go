package chat

import (
	"slices"

	"github.com/matheus3301/blackzap/internal/lifecycle"
)

// State is the application state owned by a Controller. It is only mutated
// on the controller's dispatcher goroutine; everybody else reads copies.
type State struct {
	UserID string
	Email  string
	Phase  lifecycle.Phase

	Profile       *UserProfile
	Contacts      []Contact
	Status        []StatusUpdate
	GlobalResults []Contact

	// FocusedID is the open conversation's counterpart, "" if none.
	FocusedID string
	// Visible reports whether the UI is in the foreground.
	Visible bool

	ContactsLoading bool
	StatusLoading   bool
}

func (s State) clone() State {
	out := s
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	out.Contacts = slices.Clone(s.Contacts)
	out.Status = slices.Clone(s.Status)
	out.GlobalResults = slices.Clone(s.GlobalResults)
	return out
}

// Contact finds id among the recent chats, then among the global search
// results.
func (s State) Contact(id string) (Contact, bool) {
	for _, list := range [][]Contact{s.Contacts, s.GlobalResults} {
		if i := slices.IndexFunc(list, func(c Contact) bool { return c.ID == id }); i >= 0 {
			return list[i], true
		}
	}
	return Contact{}, false
}

// Focused returns the open conversation's contact.
func (s State) Focused() (Contact, bool) {
	if s.FocusedID == "" {
		return Contact{}, false
	}
	return s.Contact(s.FocusedID)
}

// TotalUnread sums the unread counters of the recent chats.
func (s State) TotalUnread() int {
	total := 0
	for _, c := range s.Contacts {
		total += c.UnreadCount
	}
	return total
}

// signedOut clears everything derived from the previous identity.
func (s *State) signedOut() {
	s.UserID = ""
	s.Email = ""
	s.Profile = nil
	s.Contacts = nil
	s.Status = nil
	s.GlobalResults = nil
	s.FocusedID = ""
	s.ContactsLoading = false
	s.StatusLoading = false
}
