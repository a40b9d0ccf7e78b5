package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inkfs/inkfs/internal/apierror"
)

// isUniqueViolation reports whether err is a Postgres 23505 (unique
// constraint violation), the directory_entries(parent, name) race a
// concurrent create can lose.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// mapPgError translates a raw pgx/pgconn error into the apierror taxonomy
// for the user-visible cases spec §4.1 calls out; anything else is wrapped
// as an opaque internal error.
func mapPgError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apierror.New(apierror.KindNotFound, op+": not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return apierror.New(apierror.KindAlreadyExists, op+": already exists")
		case "23503": // foreign_key_violation
			return apierror.New(apierror.KindNotFound, op+": referenced node not found")
		}
		return fmt.Errorf("metastore/postgres: %s: %w", op, pgErr)
	}

	return fmt.Errorf("metastore/postgres: %s: %w", op, err)
}
