package bots

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/botify-mailer/botify/internal/apperr"
)

// Bot is a per-user configuration record authorizing use of the shared
// system mailbox. The mailbox credential is stored on the row but is never
// selected back out of this package.
type Bot struct {
	ID        int64      `json:"bot_id"`
	Name      string     `json:"bot_name"`
	Email     string     `json:"bot_email,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

// ListByOwner returns the caller's bots, newest first.
func (s *Store) ListByOwner(ctx context.Context, userID string) ([]Bot, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT bot_id, bot_name, bot_email, is_active, created_at, updated_at
		FROM bots
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Bot{}
	for rows.Next() {
		var b Bot
		if err := rows.Scan(&b.ID, &b.Name, &b.Email, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Create inserts a new active bot bound to the shared system mailbox.
func (s *Store) Create(ctx context.Context, userID, name, mailbox, credential string) (Bot, error) {
	var b Bot
	b.Name = name
	b.Email = mailbox
	b.IsActive = true
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO bots (user_id, bot_name, bot_email, bot_password, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING bot_id, created_at
	`, userID, name, mailbox, credential).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return Bot{}, err
	}
	return b, nil
}

// GetOwned fetches a bot only when it belongs to the given owner.
func (s *Store) GetOwned(ctx context.Context, botID int64, userID string) (Bot, error) {
	var b Bot
	err := s.DB.QueryRowContext(ctx, `
		SELECT bot_id, bot_name, is_active, created_at, updated_at
		FROM bots
		WHERE bot_id = $1 AND user_id = $2
	`, botID, userID).Scan(&b.ID, &b.Name, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Bot{}, apperr.NewBotNotFound(botID)
	}
	if err != nil {
		return Bot{}, err
	}
	return b, nil
}

// Rename updates the bot's display name. Credentials are not updatable.
func (s *Store) Rename(ctx context.Context, botID int64, userID, name string) (Bot, error) {
	var b Bot
	err := s.DB.QueryRowContext(ctx, `
		UPDATE bots
		   SET bot_name = $1, updated_at = NOW()
		 WHERE bot_id = $2 AND user_id = $3
		RETURNING bot_id, bot_name, is_active, created_at, updated_at
	`, name, botID, userID).Scan(&b.ID, &b.Name, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Bot{}, apperr.NewBotNotFound(botID)
	}
	if err != nil {
		return Bot{}, err
	}
	return b, nil
}

// SetActive toggles the bot's active flag.
func (s *Store) SetActive(ctx context.Context, botID int64, userID string, active bool) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE bots
		   SET is_active = $1, updated_at = NOW()
		 WHERE bot_id = $2 AND user_id = $3
	`, active, botID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NewBotNotFound(botID)
	}
	return nil
}

// Delete removes the bot record. No cascading side effects.
func (s *Store) Delete(ctx context.Context, botID int64, userID string) error {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM bots WHERE bot_id = $1 AND user_id = $2
	`, botID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NewBotNotFound(botID)
	}
	return nil
}

// GuardActive verifies ownership and the active flag before any file
// parsing or network activity happens.
func (s *Store) GuardActive(ctx context.Context, botID int64, userID string) (Bot, error) {
	b, err := s.GetOwned(ctx, botID, userID)
	if err != nil {
		return Bot{}, err
	}
	if !b.IsActive {
		return Bot{}, &apperr.InactiveBotError{BotID: botID}
	}
	return b, nil
}
