package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind is the closed taxonomy of store failures. Callers switch on the
// kind instead of inspecting driver error codes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindUniqueConstraint
	KindForeignKeyViolation
	KindTransactionConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUniqueConstraint:
		return "unique_constraint"
	case KindForeignKeyViolation:
		return "foreign_key_violation"
	case KindTransactionConflict:
		return "transaction_conflict"
	default:
		return "unknown"
	}
}

// Error wraps a driver error with its classified kind and the entity involved.
type Error struct {
	Kind   ErrorKind
	Entity string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %q: %s: %v", e.Entity, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Entity, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a store miss.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindNotFound
}

// KindOf returns the classified kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// classify maps a pgx/PostgreSQL error to an Error with a closed kind.
// This is the only place driver error codes are interpreted.
func classify(entity, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Kind: KindNotFound, Entity: entity, Key: key, Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &Error{Kind: KindUniqueConstraint, Entity: entity, Key: key, Err: err}
		case "23503":
			return &Error{Kind: KindForeignKeyViolation, Entity: entity, Key: key, Err: err}
		case "40001", "40P01":
			return &Error{Kind: KindTransactionConflict, Entity: entity, Key: key, Err: err}
		}
	}
	return &Error{Kind: KindUnknown, Entity: entity, Key: key, Err: err}
}
