package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "portfolio-workers/internal/common/errors"
)

// RunInTx runs fn in a transaction and retries it from scratch on
// ErrConflict, up to attempts times. StandardErrors raised by fn, such as
// business errors or a failed directory lookup, come back unchanged; anything
// else that stops the commit is a PersistenceFailure.
func RunInTx(ctx context.Context, s Store, attempts int, operation string, fn func(ctx context.Context, tx Tx) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.WithinTx(ctx, fn)
		if err == nil {
			return nil
		}
		if _, ok := apperrors.AsStandard(err); ok {
			return err
		}
		if errors.Is(err, ErrConflict) {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return apperrors.NewPersistenceFailureError(operation, err)
	}

	return apperrors.NewPersistenceFailureError(operation,
		fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr))
}
