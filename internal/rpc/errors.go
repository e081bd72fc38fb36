package rpc

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrAuthRequired means the backend rejected the caller's session.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound means the procedure returned no row.
	ErrNotFound = errors.New("not found")
)

// Kind classifies a domain rejection raised by a procedure.
type Kind string

const (
	KindAmountPrecision Kind = "amount_precision"
	KindAmount          Kind = "amount"
	KindWallet          Kind = "wallet"
	KindMinimum         Kind = "minimum"
	KindStatus          Kind = "status"
	KindNotFound        Kind = "not_found"
	KindInvalid         Kind = "invalid"
)

// DomainError is a validation or state rejection raised by the backend.
type DomainError struct {
	Kind    Kind
	Message string
}

func (e *DomainError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// IsDomain reports whether err is a *DomainError and returns it.
func IsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Classify maps a driver error onto ErrAuthRequired, ErrNotFound or a
// *DomainError. Anything else is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if strings.Contains(strings.ToLower(err.Error()), "not authenticated") {
			return ErrAuthRequired
		}
		return err
	}

	msg := strings.ToLower(pgErr.Message)
	switch {
	case strings.Contains(msg, "not authenticated"):
		return ErrAuthRequired
	case pgErr.Code == "P0002":
		return ErrNotFound
	}
	switch pgErr.Code {
	case "28000", "42501", "PT401":
		return ErrAuthRequired
	case "P0001", "22023", "23514", "PT422":
		return &DomainError{Kind: kindFromMessage(msg), Message: pgErr.Message}
	}
	return err
}

func kindFromMessage(msg string) Kind {
	switch {
	case strings.Contains(msg, "precision"), strings.Contains(msg, "decimal"):
		return KindAmountPrecision
	case strings.Contains(msg, "minimum"):
		return KindMinimum
	case strings.Contains(msg, "wallet"):
		return KindWallet
	case strings.Contains(msg, "not found"):
		return KindNotFound
	case strings.Contains(msg, "status"), strings.Contains(msg, "transition"):
		return KindStatus
	case strings.Contains(msg, "amount"):
		return KindAmount
	}
	return KindInvalid
}
