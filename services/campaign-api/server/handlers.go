package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/botify-mailer/botify/internal/apperr"
	"github.com/botify-mailer/botify/internal/auth"
	"github.com/botify-mailer/botify/internal/bots"
	"github.com/botify-mailer/botify/internal/campaign"
	"github.com/botify-mailer/botify/internal/mailer"
	"github.com/botify-mailer/botify/internal/recipients"
	"github.com/botify-mailer/botify/internal/store"
	"github.com/botify-mailer/botify/pkg/config"
	"github.com/botify-mailer/botify/pkg/logx"
	"github.com/botify-mailer/botify/pkg/metrics"
	"github.com/botify-mailer/botify/pkg/rmq"
)

const maxUploadBytes = 10 << 20

type botsAPI interface {
	ListByOwner(ctx context.Context, userID string) ([]bots.Bot, error)
	Create(ctx context.Context, userID, name, mailbox, credential string) (bots.Bot, error)
	GetOwned(ctx context.Context, botID int64, userID string) (bots.Bot, error)
	Rename(ctx context.Context, botID int64, userID, name string) (bots.Bot, error)
	SetActive(ctx context.Context, botID int64, userID string, active bool) error
	Delete(ctx context.Context, botID int64, userID string) error
	GuardActive(ctx context.Context, botID int64, userID string) (bots.Bot, error)
}

type campaignsAPI interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	InsertCampaign(ctx context.Context, tx *sql.Tx, c campaign.Row) (int64, error)
	InsertDelivery(ctx context.Context, tx *sql.Tx, campaignID int64, address string) error
	SetCampaignStatus(ctx context.Context, id int64, status string) error
	GetOwnedCampaign(ctx context.Context, id int64, userID string) (campaign.Row, error)
	GetStats(ctx context.Context, campaignID int64) (campaign.Stats, error)
	ListDeliveries(ctx context.Context, campaignID int64) ([]campaign.Delivery, error)
}

type publisherAPI interface {
	PublishJSON(ctx context.Context, body []byte) error
}

type Handlers struct {
	Bots      botsAPI
	Campaigns campaignsAPI
	Pub       publisherAPI
	Cfg       config.APIConfig
	Verifier  auth.Verifier

	// NewTransport is swapped for a fake in tests.
	NewTransport func(sender, credential string) mailer.Transport
}

func NewHandlers(b *bots.Store, s *store.Store, pub *rmq.Publisher, cfg config.APIConfig) *Handlers {
	return &Handlers{
		Bots:         b,
		Campaigns:    s,
		Pub:          pub,
		Cfg:          cfg,
		Verifier:     auth.NewJWTVerifier(cfg.JWTSecret),
		NewTransport: mailer.NewTransport,
	}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ok writes the standard success envelope with any extra payload fields.
func ok(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// fail maps a taxonomy error to its status and a stable client-facing
// message. Raw error detail is attached only outside production.
func (h *Handlers) fail(c *gin.Context, err error) {
	body := gin.H{"success": false, "message": publicMessage(err)}
	if !config.IsProduction(h.Cfg.Env) {
		body["error"] = err.Error()
	}
	c.JSON(apperr.StatusFor(err), body)
}

func publicMessage(err error) string {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
		ib *apperr.InactiveBotError
		ce *apperr.ConfigError
		te *apperr.TransportError
		pe *apperr.ParseError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.As(err, &ib):
		return "This bot is not active"
	case errors.As(err, &nf):
		if nf.Kind == "campaign" {
			return "Campaign not found"
		}
		return "Bot not found"
	case errors.As(err, &ce):
		return "The mail account is not configured on this server"
	case errors.As(err, &te):
		return "Failed to connect to the mail server"
	case errors.As(err, &pe):
		return "Could not read the uploaded file"
	default:
		return "Internal server error"
	}
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NewValidation("invalid %s", name)
	}
	return id, nil
}

// systemMailbox returns the shared sender credentials, or a ConfigError
// when the operator has not set them.
func (h *Handlers) systemMailbox() (email, password string, err error) {
	if h.Cfg.BotEmail == "" || h.Cfg.BotPassword == "" {
		return "", "", &apperr.ConfigError{Msg: "BOT_EMAIL and BOT_PASSWORD must be set"}
	}
	return h.Cfg.BotEmail, h.Cfg.BotPassword, nil
}

// saveUpload copies one multipart file into the upload directory under a
// random name, preserving the original extension.
func (h *Handlers) saveUpload(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxUploadBytes {
		return "", apperr.NewValidation("file %s exceeds the 10 MB limit", fh.Filename)
	}
	if err := os.MkdirAll(h.Cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.Cfg.UploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return "", err
	}
	return path, nil
}

// parseScheduledTime accepts RFC 3339 as well as the datetime-local format
// browsers submit, and requires a strictly future instant.
func parseScheduledTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		at, err = time.ParseInLocation("2006-01-02T15:04", raw, time.Local)
	}
	if err != nil {
		return nil, apperr.NewValidation("Invalid scheduled time")
	}
	if !at.After(time.Now()) {
		return nil, apperr.NewValidation("Scheduled time must be in the future")
	}
	return &at, nil
}

// EmailCampaign accepts a multipart campaign request, extracts recipients
// from the uploaded spreadsheet, persists the campaign with one pending
// delivery row per address, and either publishes a dispatch job right away
// or leaves the row for the scheduler.
func (h *Handlers) EmailCampaign(c *gin.Context) {
	botID, err := pathID(c, "botId")
	if err != nil {
		h.fail(c, err)
		return
	}
	ident := caller(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	bot, err := h.Bots.GuardActive(ctx, botID, ident.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	subject := strings.TrimSpace(c.PostForm("subject"))
	bodyHTML := strings.TrimSpace(c.PostForm("messageBody"))
	if subject == "" || bodyHTML == "" {
		h.fail(c, apperr.NewValidation("Subject and message body are required"))
		return
	}

	scheduledAt, err := parseScheduledTime(c.PostForm("scheduledTime"))
	if err != nil {
		h.fail(c, err)
		return
	}

	sheetFH, err := c.FormFile("excelFile")
	if err != nil {
		h.fail(c, apperr.NewValidation("A recipient file is required"))
		return
	}
	if !recipients.AllowedExtensions[strings.ToLower(filepath.Ext(sheetFH.Filename))] {
		h.fail(c, apperr.NewValidation("Only .xlsx, .xls and .csv files are accepted"))
		return
	}

	sheetPath, err := h.saveUpload(c, sheetFH)
	if err != nil {
		h.fail(c, err)
		return
	}

	var attachPath, attachName string
	if attachFH, ferr := c.FormFile("attachment"); ferr == nil {
		attachPath, err = h.saveUpload(c, attachFH)
		if err != nil {
			mailer.Cleanup(sheetPath)
			h.fail(c, err)
			return
		}
		attachName = attachFH.Filename
	}

	addrs, err := recipients.Extract(sheetPath)
	mailer.Cleanup(sheetPath)
	if err != nil {
		mailer.Cleanup(attachPath)
		h.fail(c, err)
		return
	}
	if len(addrs) == 0 {
		mailer.Cleanup(attachPath)
		h.fail(c, apperr.NewValidation("No valid email addresses found"))
		return
	}
	metrics.RecipientsExtracted.Observe(float64(len(addrs)))

	status := campaign.StatusQueued
	if scheduledAt != nil {
		status = campaign.StatusScheduled
	}

	var campaignID int64
	err = h.Campaigns.WithTx(ctx, func(tx *sql.Tx) error {
		id, txErr := h.Campaigns.InsertCampaign(ctx, tx, campaign.Row{
			BotID:          botID,
			UserID:         ident.UserID,
			Subject:        subject,
			BodyHTML:       bodyHTML,
			Status:         status,
			ScheduledAt:    scheduledAt,
			AttachmentPath: attachPath,
			AttachmentName: attachName,
		})
		if txErr != nil {
			return txErr
		}
		campaignID = id
		for _, addr := range addrs {
			if txErr := h.Campaigns.InsertDelivery(ctx, tx, campaignID, addr); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		mailer.Cleanup(attachPath)
		logx.L().Errorw("campaign_persist_error", "bot_id", botID, "error", err)
		h.fail(c, err)
		return
	}

	if scheduledAt != nil {
		metrics.CampaignsAccepted.WithLabelValues("scheduled").Inc()
		logx.L().Infow("campaign_scheduled",
			"campaign_id", campaignID, "bot_id", botID, "recipients", len(addrs),
			"scheduled_at", scheduledAt.Format(time.RFC3339))
		ok(c, "Campaign scheduled", gin.H{
			"campaignId":     campaignID,
			"recipientCount": len(addrs),
			"botName":        bot.Name,
			"scheduledFor":   scheduledAt.Format(time.RFC3339),
		})
		return
	}

	payload, err := json.Marshal(campaign.JobMessage{CampaignID: campaignID})
	if err != nil {
		h.fail(c, err)
		return
	}
	ctxPub, cancelPub := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPub()
	if err := h.Pub.PublishJSON(ctxPub, payload); err != nil {
		logx.L().Errorw("publish_job_error", "campaign_id", campaignID, "error", err)
		if serr := h.Campaigns.SetCampaignStatus(ctx, campaignID, campaign.StatusFailed); serr != nil {
			logx.L().Errorw("campaign_status_error", "campaign_id", campaignID, "error", serr)
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Dispatch queue unavailable"})
		return
	}
	metrics.CampaignsAccepted.WithLabelValues("immediate").Inc()
	logx.L().Infow("campaign_queued",
		"campaign_id", campaignID, "bot_id", botID, "recipients", len(addrs))
	ok(c, "Campaign queued for dispatch", gin.H{
		"campaignId":     campaignID,
		"recipientCount": len(addrs),
		"botName":        bot.Name,
	})
}

// CampaignStatus reports the campaign's state with aggregate counts and the
// per-recipient delivery list.
func (h *Handlers) CampaignStatus(c *gin.Context) {
	campaignID, err := pathID(c, "campaignId")
	if err != nil {
		h.fail(c, err)
		return
	}
	ident := caller(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	row, err := h.Campaigns.GetOwnedCampaign(ctx, campaignID, ident.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.Campaigns.GetStats(ctx, campaignID)
	if err != nil {
		logx.L().Errorw("campaign_stats_error", "campaign_id", campaignID, "error", err)
		h.fail(c, err)
		return
	}
	deliveries, err := h.Campaigns.ListDeliveries(ctx, campaignID)
	if err != nil {
		logx.L().Errorw("campaign_deliveries_error", "campaign_id", campaignID, "error", err)
		h.fail(c, err)
		return
	}

	detail := gin.H{
		"id":        row.ID,
		"botId":     row.BotID,
		"subject":   row.Subject,
		"status":    row.Status,
		"createdAt": row.CreatedAt.Format(time.RFC3339),
	}
	if row.ScheduledAt != nil {
		detail["scheduledFor"] = row.ScheduledAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"campaign":   detail,
		"stats":      stats,
		"deliveries": deliveries,
	})
}
