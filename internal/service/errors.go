package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Every error returned by a service wraps exactly one of them.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation error")
	ErrIntegrityConflict = errors.New("integrity conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// Error is a domain failure with a human readable message and a kind usable with errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InsufficientStockError reports a decrease larger than the stock on hand.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// numberTakenError means another writer committed the same document number first.
type numberTakenError struct {
	number string
}

func (e *numberTakenError) Error() string {
	return fmt.Sprintf("document number %s is already taken", e.number)
}

func (e *numberTakenError) Unwrap() error {
	return ErrIntegrityConflict
}

// loadErr converts a repository lookup failure into NotFound or a wrapped infrastructure error.
func loadErr(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(ErrNotFound, "%s %d not found", entity, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}

// saveErr converts a write failure, mapping unique violations to IntegrityConflict.
func saveErr(err error, action string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return newError(ErrIntegrityConflict, "failed to %s: duplicate value", action)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
