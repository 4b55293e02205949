/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"time"

	"github.com/allbin/serterm"
)

const pollInterval = 20 * time.Millisecond

// waitFor blocks until done accepts the session status or ctx ends. Counter
// changes do not signal Updates, so the status is also polled.
func waitFor(ctx context.Context, s *serterm.Session, done func(serterm.Status) bool) (serterm.Status, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		st := s.Status()
		if done(st) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-s.Updates():
		case <-ticker.C:
		}
	}
}

// connectAndWait starts a session and waits for the open to settle.
func connectAndWait(ctx context.Context, s *serterm.Session, cfg serterm.ConnectionConfig) error {
	if err := s.Connect(cfg); err != nil {
		return err
	}
	st, err := waitFor(ctx, s, func(st serterm.Status) bool {
		return st.State == serterm.StateConnected || st.State == serterm.StateFailed
	})
	if err != nil {
		return err
	}
	if st.State == serterm.StateFailed {
		return st.Err
	}
	return nil
}
