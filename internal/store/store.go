// Package store holds the catalog and sale ledger persistence and the
// transaction processor that coordinates multi-step writes across them.
package store

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound marks a referenced entity that does not exist. It is
	// distinct from transient failures so callers can 404 instead of
	// retrying.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock marks a quantity adjustment that would drive
	// an inventory item's stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition marks a disallowed sale status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation marks malformed input rejected before any write.
	ErrValidation = errors.New("invalid input")
)

// queryer is the subset of sqlx satisfied by both *sqlx.DB and
// *sqlx.Tx, so the same store code runs standalone or inside a
// processor transaction.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
