package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/botify-mailer/botify/internal/apperr"
	"github.com/botify-mailer/botify/internal/campaign"
)

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertCampaign persists a campaign row inside the given transaction.
func (s *Store) InsertCampaign(ctx context.Context, tx *sql.Tx, c campaign.Row) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO campaigns (bot_id, user_id, subject, body_html, status, scheduled_at, attachment_path, attachment_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id
	`, c.BotID, c.UserID, c.Subject, c.BodyHTML, c.Status, c.ScheduledAt, c.AttachmentPath, c.AttachmentName).Scan(&id)
	return id, err
}

// InsertDelivery adds one pending recipient row for a campaign.
func (s *Store) InsertDelivery(ctx context.Context, tx *sql.Tx, campaignID int64, address string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO deliveries (campaign_id, address, status)
		VALUES ($1,$2,'pending')
	`, campaignID, address)
	return err
}

// GetOwnedCampaign fetches a campaign only when the caller owns it.
func (s *Store) GetOwnedCampaign(ctx context.Context, id int64, userID string) (campaign.Row, error) {
	var c campaign.Row
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, bot_id, user_id, subject, status, scheduled_at, created_at
		FROM campaigns
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&c.ID, &c.BotID, &c.UserID, &c.Subject, &c.Status, &c.ScheduledAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.Row{}, apperr.NewCampaignNotFound(id)
	}
	if err != nil {
		return campaign.Row{}, err
	}
	return c, nil
}

// DispatchInfo is everything the worker needs to run one sweep.
type DispatchInfo struct {
	Campaign campaign.Row
	BotName  string
}

// GetDispatchInfo loads the campaign with its bot's display name.
func (s *Store) GetDispatchInfo(ctx context.Context, id int64) (DispatchInfo, error) {
	var d DispatchInfo
	err := s.DB.QueryRowContext(ctx, `
		SELECT c.id, c.bot_id, c.user_id, c.subject, c.body_html, c.status,
		       c.attachment_path, c.attachment_name, b.bot_name
		FROM campaigns c
		JOIN bots b ON b.bot_id = c.bot_id
		WHERE c.id = $1
	`, id).Scan(&d.Campaign.ID, &d.Campaign.BotID, &d.Campaign.UserID, &d.Campaign.Subject,
		&d.Campaign.BodyHTML, &d.Campaign.Status, &d.Campaign.AttachmentPath,
		&d.Campaign.AttachmentName, &d.BotName)
	if errors.Is(err, sql.ErrNoRows) {
		return DispatchInfo{}, apperr.NewCampaignNotFound(id)
	}
	return d, err
}

// PendingDeliveries returns the campaign's unsent recipients in first-seen
// order (insertion order by id).
func (s *Store) PendingDeliveries(ctx context.Context, campaignID int64) ([]campaign.Delivery, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, address FROM deliveries
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []campaign.Delivery
	for rows.Next() {
		var d campaign.Delivery
		if err := rows.Scan(&d.ID, &d.Address); err != nil {
			return nil, err
		}
		d.Status = campaign.DeliveryPending
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) MarkDeliverySent(ctx context.Context, id int64) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE deliveries
		   SET status='sent', sent_at=NOW(), last_error=NULL
		 WHERE id=$1
	`, id)
	return err
}

func (s *Store) MarkDeliveryFailed(ctx context.Context, id int64, reason string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE deliveries
		   SET status='failed', last_error=$1
		 WHERE id=$2
	`, reason, id)
	return err
}

func (s *Store) SetCampaignStatus(ctx context.Context, id int64, status string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2
	`, status, id)
	return err
}

// GetStats aggregates delivery rows for one campaign.
func (s *Store) GetStats(ctx context.Context, campaignID int64) (campaign.Stats, error) {
	var st campaign.Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
		  COUNT(*)                                 AS total,
		  COUNT(*) FILTER (WHERE status='pending') AS pending,
		  COUNT(*) FILTER (WHERE status='sent')    AS sent,
		  COUNT(*) FILTER (WHERE status='failed')  AS failed
		FROM deliveries
		WHERE campaign_id = $1
	`, campaignID).Scan(&st.Total, &st.Pending, &st.Sent, &st.Failed)
	if err != nil {
		return campaign.Stats{}, err
	}
	return st, nil
}

// ListDeliveries returns every delivery row for a campaign, first-seen order.
func (s *Store) ListDeliveries(ctx context.Context, campaignID int64) ([]campaign.Delivery, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, address, status, COALESCE(last_error, ''), sent_at
		FROM deliveries
		WHERE campaign_id = $1
		ORDER BY id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []campaign.Delivery{}
	for rows.Next() {
		var d campaign.Delivery
		if err := rows.Scan(&d.ID, &d.Address, &d.Status, &d.LastError, &d.SentAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDueScheduled returns scheduled campaigns whose time has come. The
// poller publishes each one and then flips it to queued; a crash in between
// re-publishes on the next tick, which the worker tolerates because the
// sweep only touches pending delivery rows.
func (s *Store) ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id FROM campaigns
		WHERE status='scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
