package chat

import (
	"context"
	"slices"
	"strings"

	"github.com/matheus3301/blackzap/internal/backend"
	"go.uber.org/zap"
)

// SignIn forwards to the backend; the auth watcher loads the session.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	_, err := c.client.SignIn(ctx, email, password)
	return err
}

// SignUp registers and signs in.
func (c *Controller) SignUp(ctx context.Context, email, password, fullName string) error {
	_, err := c.client.SignUp(ctx, email, password, fullName)
	return err
}

// SignOut ends the session and drops the focused conversation. The focus is
// cleared even if the backend call fails.
func (c *Controller) SignOut(ctx context.Context) error {
	err := c.client.SignOut(ctx)
	if err != nil {
		c.logger.Error("sign out failed", zap.Error(err))
	}
	c.post(func() {
		c.mutate(func(s *State) { s.FocusedID = "" })
		c.clearMarker()
	})
	return err
}

// Open focuses a conversation, persists the marker and marks it read.
func (c *Controller) Open(contactID string) {
	c.post(func() { c.open(contactID) })
}

func (c *Controller) open(contactID string) {
	if contactID == "" {
		c.close()
		return
	}
	c.mutate(func(s *State) { s.FocusedID = contactID })
	c.setMarker(contactID)
	c.markRead(contactID)
}

// Close unfocuses the open conversation.
func (c *Controller) Close() {
	c.post(c.close)
}

func (c *Controller) close() {
	c.mutate(func(s *State) { s.FocusedID = "" })
	c.clearMarker()
}

// Send posts text to the focused conversation. Without a session or focus
// it does nothing. Failures are logged.
func (c *Controller) Send(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.post(func() {
		st := c.read()
		if st.UserID == "" || st.FocusedID == "" {
			return
		}
		to := st.FocusedID
		c.async(func(ctx context.Context) {
			if _, err := c.client.SendMessage(ctx, to, text); err != nil {
				c.logger.Error("failed to send message", zap.String("contact_id", to), zap.Error(err))
			}
		})
	})
}

// Search runs the global profile search. A blank term clears the results; a
// leading '@' is ignored.
func (c *Controller) Search(term string) {
	c.post(func() {
		uid := c.read().UserID
		if uid == "" || strings.TrimSpace(term) == "" {
			c.mutate(func(s *State) { s.GlobalResults = nil })
			return
		}
		q := strings.TrimPrefix(term, "@")
		c.async(func(ctx context.Context) {
			profiles, err := c.client.SearchProfiles(ctx, q, uid, SearchLimit)
			if err != nil {
				c.logger.Error("global search failed", zap.String("term", q), zap.Error(err))
				return
			}
			results := make([]Contact, len(profiles))
			for i, p := range profiles {
				results[i] = contactFrom(p)
				results[i].LastMessage = NewConversationLabel
			}
			c.post(func() {
				c.mutate(func(s *State) {
					if s.UserID == uid {
						s.GlobalResults = results
					}
				})
			})
		})
	})
}

// SelectGlobal adds a search result to the recent chats if missing and
// opens it.
func (c *Controller) SelectGlobal(contact Contact) {
	c.post(func() {
		c.mutate(func(s *State) {
			if !slices.ContainsFunc(s.Contacts, func(o Contact) bool { return o.ID == contact.ID }) {
				s.Contacts = slices.Insert(slices.Clone(s.Contacts), 0, contact)
			}
		})
		c.open(contact.ID)
	})
}

// UpdateProfile writes the non-empty fields of u and reloads the profile
// pipeline whether or not the write succeeded.
func (c *Controller) UpdateProfile(u backend.ProfileUpdate) {
	c.post(func() {
		uid := c.read().UserID
		if uid == "" {
			return
		}
		c.async(func(ctx context.Context) {
			if err := c.client.UpdateProfile(ctx, u); err != nil {
				c.logger.Error("failed to update profile", zap.Error(err))
			}
			c.post(func() { c.loadProfile(uid, false) })
		})
	})
}

// PostStatus publishes a status post and refreshes the status list. Unlike
// the other intents its error is returned to the caller.
func (c *Controller) PostStatus(ctx context.Context, s backend.NewStatus) error {
	if c.Snapshot().UserID == "" {
		return backend.ErrNoSession
	}
	if _, err := c.client.PostStatus(ctx, s); err != nil {
		return err
	}
	c.post(c.refreshStatus)
	return nil
}

// Thread returns the messages exchanged with contactID, oldest first.
func (c *Controller) Thread(ctx context.Context, contactID string) ([]backend.Message, error) {
	uid := c.Snapshot().UserID
	if uid == "" {
		return nil, backend.ErrNoSession
	}
	return c.client.Thread(ctx, uid, contactID, ThreadLimit)
}

// NotificationClicked brings the app forward and opens the sender's
// conversation.
func (c *Controller) NotificationClicked(tag string) {
	c.post(func() {
		c.mutate(func(s *State) { s.Visible = true })
		c.open(tag)
	})
}

// SetVisible records whether the UI is in the foreground.
func (c *Controller) SetVisible(visible bool) {
	c.post(func() {
		c.mutate(func(s *State) { s.Visible = visible })
	})
}

// Refresh re-runs the chats and status fetches.
func (c *Controller) Refresh() {
	c.post(func() {
		c.refreshChats()
		c.refreshStatus()
	})
}
