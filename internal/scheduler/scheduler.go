package scheduler

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/botify-mailer/botify/internal/campaign"
	"github.com/botify-mailer/botify/pkg/logx"
	"github.com/botify-mailer/botify/pkg/metrics"
)

// Store is the slice of the campaign store the poller needs.
type Store interface {
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]int64, error)
	SetCampaignStatus(ctx context.Context, id int64, status string) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, body []byte) error
}

// Poller scans for due scheduled campaigns and hands them to the dispatch
// queue. Scheduled campaigns live in the database, so a process restart
// re-arms them on the next tick.
type Poller struct {
	store    Store
	pub      Publisher
	interval time.Duration
	log      *zap.SugaredLogger
}

func New(store Store, pub Publisher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Poller{store: store, pub: pub, interval: interval, log: logx.Named("scheduler")}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Infow("started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Infow("stopping")
			return
		case now := <-ticker.C:
			p.publishDue(ctx, now)
		}
	}
}

func (p *Poller) publishDue(ctx context.Context, now time.Time) {
	listCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	ids, err := p.store.ListDueScheduled(listCtx, now, 100)
	cancel()
	if err != nil {
		p.log.Errorw("list_due_error", "error", err)
		return
	}

	for _, id := range ids {
		body, err := json.Marshal(campaign.JobMessage{CampaignID: id})
		if err != nil {
			p.log.Errorw("job_marshal_error", "campaign_id", id, "error", err)
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.pub.PublishJSON(pubCtx, body)
		cancel()
		if err != nil {
			// leave the row scheduled; the next tick retries
			p.log.Errorw("publish_error", "campaign_id", id, "error", err)
			continue
		}

		updCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.store.SetCampaignStatus(updCtx, id, campaign.StatusQueued)
		cancel()
		if err != nil {
			p.log.Errorw("status_update_error", "campaign_id", id, "error", err)
			continue
		}

		metrics.ScheduledPublished.Inc()
		p.log.Infow("campaign_published", "campaign_id", id)
	}
}
