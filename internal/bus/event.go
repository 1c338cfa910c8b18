package bus

import "time"

// Event kinds published on the bus. Subscribers filter by prefix, so
// "realtime." receives every row change and "realtime.messages." only
// message changes.
const (
	KindMessageInsert = "realtime.messages.insert"
	KindMessageUpdate = "realtime.messages.update"
	KindStatusInsert  = "realtime.status.insert"
	KindProfileUpdate = "realtime.profiles.update"

	KindStateChanged  = "state.changed"
	KindThreadChanged = "state.thread_changed"
	KindPhaseChanged  = "session.phase_changed"
	KindDaemonPhase   = "daemon.phase_changed"
	KindNotification  = "notify.shown"
	KindAuthSignedIn  = "auth.signed_in"
	KindAuthSignedOut = "auth.signed_out"
	KindAuthRefreshed = "auth.token_refreshed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
