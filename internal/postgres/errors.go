package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// wrapError adds the operation and id to a datastore error. Postgres errors
// keep their server message so callers see what the database reported,
// e.g. a malformed uuid.
func wrapError(err error, op, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s %s: %s (SQLSTATE %s): %w", op, id, pgErr.Message, pgErr.Code, err)
	}

	return fmt.Errorf("%s %s: %w", op, id, err)
}
