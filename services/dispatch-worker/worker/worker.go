package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/botify-mailer/botify/internal/apperr"
	"github.com/botify-mailer/botify/internal/campaign"
	"github.com/botify-mailer/botify/internal/mailer"
	"github.com/botify-mailer/botify/internal/store"
	"github.com/botify-mailer/botify/pkg/config"
	"github.com/botify-mailer/botify/pkg/logx"
	"github.com/botify-mailer/botify/pkg/metrics"
	"github.com/botify-mailer/botify/pkg/rmq"
)

type storeAPI interface {
	GetDispatchInfo(ctx context.Context, id int64) (store.DispatchInfo, error)
	PendingDeliveries(ctx context.Context, campaignID int64) ([]campaign.Delivery, error)
	MarkDeliverySent(ctx context.Context, id int64) error
	MarkDeliveryFailed(ctx context.Context, id int64, reason string) error
	SetCampaignStatus(ctx context.Context, id int64, status string) error
}

type Worker struct {
	Store   storeAPI
	Cons    *rmq.Consumer
	Limiter *rate.Limiter

	Mailbox    string
	Credential string

	// NewTransport is swapped for a fake in tests.
	NewTransport func(sender, credential string) mailer.Transport
}

func New(st *store.Store, cons *rmq.Consumer, cfg config.WorkerConfig) *Worker {
	return &Worker{
		Store:        st,
		Cons:         cons,
		Limiter:      rate.NewLimiter(rate.Limit(cfg.SendRate), 1),
		Mailbox:      cfg.BotEmail,
		Credential:   cfg.BotPassword,
		NewTransport: mailer.NewTransport,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.Cons.Consume()
	if err != nil {
		return err
	}
	logx.L().Infow("worker_started", "queue", w.Cons.Queue)

	for {
		select {
		case <-ctx.Done():
			logx.L().Infow("worker_stopping")
			return ctx.Err()

		case d, ok := <-msgs:
			if !ok {
				logx.L().Warnw("consumer_channel_closed")
				return nil
			}
			if w.Process(ctx, d.Body) {
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// pacedTransport throttles sends so a big campaign cannot trip provider
// rate limits.
type pacedTransport struct {
	tr  mailer.Transport
	lim *rate.Limiter
}

func (p pacedTransport) Verify() error { return p.tr.Verify() }

func (p pacedTransport) Send(m *mailer.Message) error {
	if err := p.lim.Wait(context.Background()); err != nil {
		return err
	}
	return p.tr.Send(m)
}

// Process runs one dispatch sweep. The return value asks for a requeue:
// true only for infrastructure errors where a later attempt can succeed.
// Malformed jobs and terminal campaign states are dropped.
func (w *Worker) Process(ctx context.Context, body []byte) (requeue bool) {
	start := time.Now()
	metrics.WorkerSweeps.Inc()
	defer func() {
		metrics.WorkerSweepDuration.Observe(time.Since(start).Seconds())
	}()

	var job campaign.JobMessage
	if err := json.Unmarshal(body, &job); err != nil {
		logx.L().Warnw("job_unmarshal_error", "error", err)
		return false
	}

	ctx1, cancel1 := context.WithTimeout(ctx, 5*time.Second)
	info, err := w.Store.GetDispatchInfo(ctx1, job.CampaignID)
	cancel1()
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		logx.L().Warnw("campaign_gone", "campaign_id", job.CampaignID)
		return false
	}
	if err != nil {
		logx.L().Errorw("dispatch_info_error", "campaign_id", job.CampaignID, "error", err)
		return true
	}

	camp := info.Campaign
	if camp.Status == campaign.StatusDone || camp.Status == campaign.StatusFailed {
		logx.L().Infow("campaign_already_terminal", "campaign_id", camp.ID, "status", camp.Status)
		return false
	}

	if err := w.setStatus(ctx, camp.ID, campaign.StatusDispatching); err != nil {
		logx.L().Errorw("campaign_status_error", "campaign_id", camp.ID, "error", err)
		return true
	}

	ctx2, cancel2 := context.WithTimeout(ctx, 5*time.Second)
	pending, err := w.Store.PendingDeliveries(ctx2, camp.ID)
	cancel2()
	if err != nil {
		logx.L().Errorw("pending_deliveries_error", "campaign_id", camp.ID, "error", err)
		return true
	}
	if len(pending) == 0 {
		w.finish(ctx, camp, campaign.StatusDone, 0, 0)
		return false
	}

	if w.Mailbox == "" || w.Credential == "" {
		logx.L().Errorw("mailbox_not_configured", "campaign_id", camp.ID)
		w.failAll(ctx, camp, pending, "mail account not configured")
		return false
	}

	tr := pacedTransport{tr: w.NewTransport(w.Mailbox, w.Credential), lim: w.Limiter}
	if err := tr.Verify(); err != nil {
		logx.L().Errorw("transport_verify_error", "campaign_id", camp.ID, "error", err)
		w.failAll(ctx, camp, pending, err.Error())
		return false
	}

	base := mailer.Message{
		From:     w.Mailbox,
		FromName: info.BotName,
		Subject:  camp.Subject,
		HTML:     camp.BodyHTML,
	}
	if camp.AttachmentPath != "" {
		base.Attachment = &mailer.Attachment{Name: camp.AttachmentName, Path: camp.AttachmentPath}
	}

	addrs := make([]string, len(pending))
	for i, d := range pending {
		addrs[i] = d.Address
	}
	results := mailer.RunSweep(tr, base, addrs)

	for i, r := range results {
		if r.Err != nil {
			w.markFailed(ctx, pending[i].ID, r.Err.Error())
			continue
		}
		w.markSent(ctx, pending[i].ID)
	}

	sent, failed := mailer.Tally(results)
	status := campaign.StatusDone
	if sent == 0 && failed > 0 {
		status = campaign.StatusFailed
	}
	w.finish(ctx, camp, status, sent, failed)
	return false
}

func (w *Worker) failAll(ctx context.Context, camp campaign.Row, pending []campaign.Delivery, reason string) {
	for _, d := range pending {
		w.markFailed(ctx, d.ID, reason)
	}
	w.finish(ctx, camp, campaign.StatusFailed, 0, len(pending))
}

func (w *Worker) finish(ctx context.Context, camp campaign.Row, status string, sent, failed int) {
	if err := w.setStatus(ctx, camp.ID, status); err != nil {
		logx.L().Errorw("campaign_status_error", "campaign_id", camp.ID, "error", err)
	}
	mailer.Cleanup(camp.AttachmentPath)

	metrics.WorkerRecipientsSent.Add(float64(sent))
	metrics.WorkerRecipientsFailed.Add(float64(failed))
	logx.L().Infow("dispatch_complete",
		"campaign_id", camp.ID,
		"status", status,
		"sent", sent,
		"failed", failed,
	)
}

func (w *Worker) setStatus(ctx context.Context, id int64, status string) error {
	ctx1, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return w.Store.SetCampaignStatus(ctx1, id, status)
}

func (w *Worker) markSent(ctx context.Context, id int64) {
	ctx1, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Store.MarkDeliverySent(ctx1, id); err != nil {
		logx.L().Errorw("db_mark_sent_error", "delivery_id", id, "error", err)
	}
}

func (w *Worker) markFailed(ctx context.Context, id int64, reason string) {
	ctx1, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Store.MarkDeliveryFailed(ctx1, id, reason); err != nil {
		logx.L().Errorw("db_mark_failed_error", "delivery_id", id, "error", err)
	}
}
