package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassifyKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"no rows", pgx.ErrNoRows, KindNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), KindNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, KindUniqueConstraint},
		{"fk violation", &pgconn.PgError{Code: "23503"}, KindForeignKeyViolation},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, KindTransactionConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, KindTransactionConflict},
		{"other pg error", &pgconn.PgError{Code: "42P01"}, KindUnknown},
		{"plain error", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("widget", "w1", tt.err)
			if KindOf(got) != tt.kind {
				t.Errorf("classify(%v) kind = %s, want %s", tt.err, KindOf(got), tt.kind)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := classify("widget", "w1", nil); got != nil {
		t.Errorf("classify(nil) = %v, want nil", got)
	}
}

func TestIsNotFound(t *testing.T) {
	err := classify("widget", "w1", pgx.ErrNoRows)
	if !IsNotFound(err) {
		t.Error("IsNotFound should be true for classified ErrNoRows")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("IsNotFound should be false for unclassified errors")
	}
}
