//go:build !integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"trading-academy/internal/domain"
)

func TestMapWriteErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"unique violation", &pgconn.PgError{Code: "23505"}, domain.ErrAlreadyExists},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), domain.ErrAlreadyExists},
		{"other pg error", &pgconn.PgError{Code: "23503"}, domain.ErrOperationFailed},
		{"bad exec context", domain.ErrInvalidExecContext, domain.ErrInvalidExecContext},
		{"canceled", context.Canceled, context.Canceled},
		{"anything else", errors.New("boom"), domain.ErrOperationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapWriteErr(tc.in); !errors.Is(got, tc.want) && got != tc.want {
				t.Errorf("mapWriteErr(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestMapReadErr(t *testing.T) {
	if err := mapReadErr(pgx.ErrNoRows); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mapReadErr(errors.New("scan")); !errors.Is(err, domain.ErrReadDatabaseRow) {
		t.Errorf("expected ErrReadDatabaseRow, got %v", err)
	}
}

func TestGetExecutor(t *testing.T) {
	if _, err := getExecutor(nil, nil); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Errorf("nil pool and nil tx: expected ErrInvalidExecContext, got %v", err)
	}
	if _, err := getExecutor(nil, "not-a-tx"); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Errorf("foreign tx: expected ErrInvalidExecContext, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryable(tc.in); got != tc.want {
				t.Errorf("retryable(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestHashToInt64(t *testing.T) {
	a, b := hashToInt64("subscription:u1"), hashToInt64("subscription:u1")
	if a != b {
		t.Fatal("hash must be stable")
	}
	if a < 0 {
		t.Fatal("hash must be non-negative")
	}
	if a == hashToInt64("subscription:u2") {
		t.Fatal("different users should not collide here")
	}
}
