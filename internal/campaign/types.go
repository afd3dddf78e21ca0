package campaign

import "time"

// Campaign statuses. scheduled rows wait for the poller, queued rows are on
// the broker, dispatching/done/failed track the worker's sweep.
const (
	StatusScheduled   = "scheduled"
	StatusQueued      = "queued"
	StatusDispatching = "dispatching"
	StatusDone        = "done"
	StatusFailed      = "failed"
)

// Per-recipient delivery statuses.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// JobMessage is the queue payload for one dispatch sweep.
type JobMessage struct {
	CampaignID int64 `json:"campaign_id"`
}

// Row is a persisted campaign.
type Row struct {
	ID             int64
	BotID          int64
	UserID         string
	Subject        string
	BodyHTML       string
	Status         string
	ScheduledAt    *time.Time
	AttachmentPath string
	AttachmentName string
	CreatedAt      time.Time
}

// Delivery is one recipient's outcome within a campaign.
type Delivery struct {
	ID        int64      `json:"id"`
	Address   string     `json:"address"`
	Status    string     `json:"status"`
	LastError string     `json:"last_error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// Stats aggregates delivery rows for one campaign.
type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}
