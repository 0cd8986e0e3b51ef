package bus

import "time"

// Event kinds published by the daemon.
const (
	KindStatusChanged = "daemon.status_changed"

	KindPostPublished = "post.published"
	KindPostScheduled = "post.scheduled"
	KindPostEdited    = "post.edited"
	KindPostDeleted   = "post.deleted"
	KindPostFailed    = "post.failed"

	KindJobFired     = "job.fired"
	KindJobCancelled = "job.cancelled"

	KindWhatsAppQR        = "whatsapp.qr"
	KindWhatsAppPaired    = "whatsapp.paired"
	KindWhatsAppLoggedOut = "whatsapp.logged_out"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
