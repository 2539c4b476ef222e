package notify

import (
	"context"
	"errors"
)

// Multi fans a notification out to several channels. It succeeds when at
// least one channel delivered.
type Multi []Channel

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	delivered := false
	for _, ch := range m {
		if err := ch.Notify(ctx, n); err != nil {
			errs = append(errs, err)
			continue
		}
		delivered = true
	}
	if delivered {
		return nil
	}
	if len(errs) == 0 {
		return ErrNotDelivered
	}
	return errors.Join(errs...)
}
