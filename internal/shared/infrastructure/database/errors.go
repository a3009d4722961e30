package database

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNoRows is returned by ExecAffected when a statement changed nothing.
var ErrNoRows = errors.New("no rows affected")

// IsNoRows reports whether err means no row matched, for either driver.
func IsNoRows(err error) bool {
	return err != nil && (errors.Is(err, ErrNoRows) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, pgx.ErrNoRows))
}

// NotFound maps a no-rows error to the repository's not-found sentinel and
// passes any other error through unchanged.
func NotFound(err, sentinel error) error {
	if IsNoRows(err) {
		return sentinel
	}
	return err
}
