package bots

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/botify-mailer/botify/internal/apperr"
)

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO bots (user_id, bot_name, bot_email, bot_password, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING bot_id, created_at
	`)).
		WithArgs("u-1", "My Bot", "bot@gmail.com", "app-pass").
		WillReturnRows(sqlmock.NewRows([]string{"bot_id", "created_at"}).AddRow(7, now))

	b, err := s.Create(context.Background(), "u-1", "My Bot", "bot@gmail.com", "app-pass")
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != 7 || !b.IsActive || b.Name != "My Bot" {
		t.Fatalf("unexpected bot: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetOwned_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery("SELECT bot_id, bot_name, is_active").
		WithArgs(int64(9), "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"bot_id", "bot_name", "is_active", "created_at", "updated_at"}))

	_, err = s.GetOwned(context.Background(), 9, "u-1")
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestGuardActive_Inactive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectQuery("SELECT bot_id, bot_name, is_active").
		WithArgs(int64(3), "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"bot_id", "bot_name", "is_active", "created_at", "updated_at"}).
			AddRow(3, "Paused Bot", false, time.Now(), nil))

	_, err = s.GuardActive(context.Background(), 3, "u-1")
	var ib *apperr.InactiveBotError
	if !errors.As(err, &ib) {
		t.Fatalf("expected InactiveBotError, got %v", err)
	}
}

func TestDelete_NotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)

	mock.ExpectExec("DELETE FROM bots").
		WithArgs(int64(3), "u-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.Delete(context.Background(), 3, "u-2")
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRename(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := New(db)
	now := time.Now()

	mock.ExpectQuery("UPDATE bots").
		WithArgs("New Name", int64(3), "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"bot_id", "bot_name", "is_active", "created_at", "updated_at"}).
			AddRow(3, "New Name", true, now, now))

	b, err := s.Rename(context.Background(), 3, "u-1", "New Name")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "New Name" || b.UpdatedAt == nil {
		t.Fatalf("unexpected bot: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
