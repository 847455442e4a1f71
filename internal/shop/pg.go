package shop

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// wrapPgErr maps store-level races to the Conflict kind so callers know a single
// retry is reasonable: serialization/deadlock failures, plus unique violations
// (dua request menabrak index unik yang sama, mis. external_id atau satu cart
// OPEN per user). Other errors pass through as-is.
func wrapPgErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return Conflict("transaction conflict: %s", pgErr.Message)
		case "23505": // unique_violation
			return Conflict("unique violation: %s", pgErr.Message)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
