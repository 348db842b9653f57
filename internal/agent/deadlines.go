package agent

import (
	"context"
	"log/slog"
)

// armDeadlines re-arms the tick source at session boundaries and disarms it
// for periods without a deadline. Only observed transitions arm the
// countdown: after a mid-session restart the elapsed part of the period is
// unknown, so the countdown stays quiet until the next boundary.
func (a *Agent) armDeadlines(ctx context.Context) error {
	changes := a.opts.Phases.Changes(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case phase, ok := <-changes:
			if !ok {
				return nil
			}
			length, ok := a.opts.SessionLengths(phase.Period)
			if !ok {
				a.opts.Armer.ClearDeadline()
				slog.Debug("countdown disarmed", "period", phase.Period)
				continue
			}
			deadline := a.opts.Now().Add(length)
			a.opts.Armer.SetDeadline(deadline)
			slog.Info("countdown armed",
				"period", phase.Period,
				"deadline", deadline,
				"length", length,
			)
		}
	}
}
