package chat

import (
	"github.com/matheus3301/blackzap/internal/backend"
	"github.com/matheus3301/blackzap/internal/notify"
)

// NotificationFor builds the notification for an incoming message. sender
// may be nil when its profile could not be fetched.
func NotificationFor(m backend.Message, sender *backend.Profile) notify.Notification {
	n := notify.Notification{
		Title: UnknownSender,
		Body:  Preview(m.Text),
		Icon:  NotificationIcon,
		Tag:   m.SenderID,
		Time:  m.CreatedAt,
	}
	if sender != nil {
		n.Title = orDefault(sender.FullName, UnknownSender)
		n.Icon = orDefault(sender.AvatarURL, NotificationIcon)
	}
	return n
}

// ShouldNotify reports whether a message from senderID is worth showing:
// permission is granted and the user is not already looking at that
// conversation.
func ShouldNotify(p notify.Permission, visible bool, focusedID, senderID string) bool {
	if p != notify.PermissionGranted {
		return false
	}
	return !visible || focusedID != senderID
}
