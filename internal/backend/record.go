package backend

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

func messageRecord(m Message) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":         m.ID,
		"sender_id":  m.SenderID,
		"contact_id": m.ContactID,
		"text":       m.Text,
		"status":     m.Status,
		"created_at": m.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func statusRecord(s Status) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":               s.ID,
		"user_id":          s.UserID,
		"type":             s.Type,
		"content":          s.Content,
		"caption":          s.Caption,
		"background_color": s.BackgroundColor,
		"created_at":       s.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func profileRecord(p Profile) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":                p.ID,
		"full_name":         p.FullName,
		"username":          p.Username,
		"about":             p.About,
		"phone":             p.Phone,
		"avatar_url":        p.AvatarURL,
		"is_verified":       p.IsVerified,
		"verified_subtitle": p.VerifiedSubtitle,
	})
}

// Field returns a string column of a change record, or "" if absent.
func (c Change) Field(name string) string {
	if c.Record == nil {
		return ""
	}
	return c.Record.GetFields()[name].GetStringValue()
}

// Message decodes a messages change record.
func (c Change) Message() (Message, error) {
	if c.Table != TableMessages {
		return Message{}, fmt.Errorf("record of %q is not a message", c.Table)
	}
	m := Message{
		ID:        c.Field("id"),
		SenderID:  c.Field("sender_id"),
		ContactID: c.Field("contact_id"),
		Text:      c.Field("text"),
		Status:    c.Field("status"),
	}
	if ts := c.Field("created_at"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Message{}, fmt.Errorf("parse created_at: %w", err)
		}
		m.CreatedAt = t
	}
	return m, nil
}
