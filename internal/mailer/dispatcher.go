package mailer

import (
	"os"
)

// SweepResult is one recipient's outcome within a dispatch sweep.
type SweepResult struct {
	Address string
	Err     error
}

// RunSweep sends base once per recipient, in order, continuing past
// individual failures. No retry, no circuit breaking: an error is recorded
// and the sweep moves on.
func RunSweep(tr Transport, base Message, recipients []string) []SweepResult {
	results := make([]SweepResult, 0, len(recipients))
	for _, to := range recipients {
		msg := base
		msg.To = to
		err := tr.Send(&msg)
		results = append(results, SweepResult{Address: to, Err: err})
	}
	return results
}

// Tally counts sent and failed results.
func Tally(results []SweepResult) (sent, failed int) {
	for _, r := range results {
		if r.Err == nil {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}

// Cleanup removes temporary upload files best-effort; removal failures are
// deliberately not surfaced.
func Cleanup(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.Remove(p)
	}
}
