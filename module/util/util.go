package util

import (
	"context"
)

// WaitClosed waits for either a signal/close on the channel or for the
// context to be cancelled. Returns nil if the channel was signalled/closed
// before the context was cancelled, otherwise it returns the context error.
func WaitClosed(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// WaitError waits for either an error on the error channel or for the done
// channel to close. Returns an error if one is received on the error channel,
// otherwise nil.
//
// This handles a race condition where the done channel could have closed
// shortly after an error was thrown, and the closure is detected before the
// error is received.
func WaitError(errChan <-chan error, done <-chan struct{}) error {
	select {
	case err := <-errChan:
		return err
	case <-done:
		select {
		case err := <-errChan:
			return err
		default:
		}
		return nil
	}
}
