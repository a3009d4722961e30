package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	errMissing := errors.New("event not found")
	errBoom := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "sql no rows", err: sql.ErrNoRows, want: errMissing},
		{name: "pgx no rows", err: pgx.ErrNoRows, want: errMissing},
		{name: "wrapped affected", err: fmt.Errorf("delete: %w", ErrNoRows), want: errMissing},
		{name: "other", err: errBoom, want: errBoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NotFound(tt.err, errMissing))
		})
	}
}
