package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// The dispatch flow's caller-visible error taxonomy. Handlers map these to
// HTTP statuses with StatusFor; everything unrecognized is a 500.

// ValidationError marks caller-fixable input problems.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a bot (or campaign) absent or not owned by the caller.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func NewBotNotFound(id int64) error      { return &NotFoundError{Kind: "bot", ID: id} }
func NewCampaignNotFound(id int64) error { return &NotFoundError{Kind: "campaign", ID: id} }

// InactiveBotError marks a bot that exists but has its active flag cleared.
type InactiveBotError struct {
	BotID int64
}

func (e *InactiveBotError) Error() string {
	return fmt.Sprintf("bot %d is not active", e.BotID)
}

// ConfigError marks missing operator configuration (system mailbox creds).
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// TransportError wraps an SMTP-level failure.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "mail transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ParseError marks an unreadable or undecodable recipient spreadsheet.
// Distinct from "parsed fine but zero addresses", which is a ValidationError.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return "parse " + e.Path + ": " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// StatusFor maps a taxonomy error to its HTTP status.
func StatusFor(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		ib *InactiveBotError
		ce *ConfigError
		te *TransportError
		pe *ParseError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ib), errors.As(err, &te), errors.As(err, &pe):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ce):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
