package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/botify-mailer/botify/internal/apperr"
	"github.com/botify-mailer/botify/internal/mailer"
	"github.com/botify-mailer/botify/pkg/logx"
)

func (h *Handlers) ListBots(c *gin.Context) {
	ident := caller(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Bots.ListByOwner(ctx, ident.UserID)
	if err != nil {
		logx.L().Errorw("bot_list_error", "user_id", ident.UserID, "error", err)
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "bots": list})
}

func (h *Handlers) CreateBot(c *gin.Context) {
	ident := caller(c)

	var req struct {
		BotName string `json:"botName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.BotName) == "" {
		h.fail(c, apperr.NewValidation("Bot name is required"))
		return
	}

	mailbox, credential, err := h.systemMailbox()
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	bot, err := h.Bots.Create(ctx, ident.UserID, strings.TrimSpace(req.BotName), mailbox, credential)
	if err != nil {
		logx.L().Errorw("bot_create_error", "user_id", ident.UserID, "error", err)
		h.fail(c, err)
		return
	}
	logx.L().Infow("bot_created", "bot_id", bot.ID, "user_id", ident.UserID)
	ok(c, "Bot created", gin.H{"bot": bot})
}

func (h *Handlers) UpdateBot(c *gin.Context) {
	botID, err := pathID(c, "botId")
	if err != nil {
		h.fail(c, err)
		return
	}
	ident := caller(c)

	var req struct {
		BotName  *string `json:"botName"`
		IsActive *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.NewValidation("Invalid request body"))
		return
	}
	if req.BotName == nil && req.IsActive == nil {
		h.fail(c, apperr.NewValidation("Nothing to update"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if req.BotName != nil {
		name := strings.TrimSpace(*req.BotName)
		if name == "" {
			h.fail(c, apperr.NewValidation("Bot name must not be empty"))
			return
		}
		if _, err := h.Bots.Rename(ctx, botID, ident.UserID, name); err != nil {
			h.fail(c, err)
			return
		}
	}
	if req.IsActive != nil {
		if err := h.Bots.SetActive(ctx, botID, ident.UserID, *req.IsActive); err != nil {
			h.fail(c, err)
			return
		}
	}

	bot, err := h.Bots.GetOwned(ctx, botID, ident.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	logx.L().Infow("bot_updated", "bot_id", botID, "user_id", ident.UserID)
	ok(c, "Bot updated", gin.H{"bot": bot})
}

func (h *Handlers) DeleteBot(c *gin.Context) {
	botID, err := pathID(c, "botId")
	if err != nil {
		h.fail(c, err)
		return
	}
	ident := caller(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.Bots.Delete(ctx, botID, ident.UserID); err != nil {
		h.fail(c, err)
		return
	}
	logx.L().Infow("bot_deleted", "bot_id", botID, "user_id", ident.UserID)
	ok(c, "Bot deleted", nil)
}

// TestConnection verifies the shared mailbox credentials and sends one test
// message to the caller's own address. Ownership is checked but the active
// flag is not; an operator may probe a paused bot.
func (h *Handlers) TestConnection(c *gin.Context) {
	botID, err := pathID(c, "botId")
	if err != nil {
		h.fail(c, err)
		return
	}
	ident := caller(c)
	if ident.Email == "" {
		h.fail(c, apperr.NewValidation("No email address on the access token"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	bot, err := h.Bots.GetOwned(ctx, botID, ident.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	mailbox, credential, err := h.systemMailbox()
	if err != nil {
		h.fail(c, err)
		return
	}

	tr := h.NewTransport(mailbox, credential)
	if err := tr.Verify(); err != nil {
		logx.L().Warnw("test_connection_verify_error", "bot_id", botID, "error", err)
		h.fail(c, err)
		return
	}
	msg := mailer.Message{
		From:     mailbox,
		FromName: bot.Name,
		To:       ident.Email,
		Subject:  "Test connection successful",
		HTML:     "<p>Your bot <b>" + bot.Name + "</b> can reach the mail server.</p>",
	}
	if err := tr.Send(&msg); err != nil {
		logx.L().Warnw("test_connection_send_error", "bot_id", botID, "error", err)
		h.fail(c, err)
		return
	}
	logx.L().Infow("test_connection_ok", "bot_id", botID, "to", ident.Email)
	ok(c, "Test message sent to "+ident.Email, gin.H{"botName": bot.Name})
}
