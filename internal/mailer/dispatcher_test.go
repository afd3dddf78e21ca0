package mailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/botify-mailer/botify/internal/apperr"
)

type fakeTransport struct {
	sent   []string
	failOn map[string]bool
	verErr error
}

func (f *fakeTransport) Verify() error { return f.verErr }

func (f *fakeTransport) Send(msg *Message) error {
	f.sent = append(f.sent, msg.To)
	if f.failOn[msg.To] {
		return &apperr.TransportError{Err: os.ErrDeadlineExceeded}
	}
	return nil
}

func TestRunSweep_ContinuesPastFailures(t *testing.T) {
	tr := &fakeTransport{failOn: map[string]bool{"b@x.com": true}}
	base := Message{From: "bot@gmail.com", FromName: "My Bot", Subject: "Hi", HTML: "<p>hi</p>"}

	results := RunSweep(tr, base, []string{"a@x.com", "b@x.com", "c@x.com"})

	if len(tr.sent) != 3 {
		t.Fatalf("expected 3 send attempts, got %d", len(tr.sent))
	}
	sent, failed := Tally(results)
	if sent != 2 || failed != 1 {
		t.Fatalf("want 2 sent / 1 failed, got %d/%d", sent, failed)
	}
	if results[1].Address != "b@x.com" || results[1].Err == nil {
		t.Fatalf("expected failure recorded for b@x.com: %+v", results[1])
	}
}

func TestRunSweep_OrderPreserved(t *testing.T) {
	tr := &fakeTransport{}
	recipients := []string{"1@x.com", "2@x.com", "3@x.com"}

	RunSweep(tr, Message{}, recipients)

	for i, addr := range recipients {
		if tr.sent[i] != addr {
			t.Fatalf("send order broken: %v", tr.sent)
		}
	}
}

func TestCleanup_BestEffort(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "upload.csv")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// missing path and empty path must not panic
	Cleanup(existing, filepath.Join(dir, "missing.pdf"), "")

	if _, err := os.Stat(existing); !os.IsNotExist(err) {
		t.Fatal("expected upload.csv to be removed")
	}
}
