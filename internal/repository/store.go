// Package repository persists the local call history.
package repository

import (
	"context"
	"errors"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the call history operations.
type Store interface {
	CreateCallRecord(ctx context.Context, rec *domain.CallRecord) error
	FinishCallRecord(ctx context.Context, rec *domain.CallRecord) error
	GetCallRecord(ctx context.Context, id string) (*domain.CallRecord, error)
	// ListCallRecords returns the newest records first. limit <= 0 means all.
	ListCallRecords(ctx context.Context, limit int) ([]domain.CallRecord, error)
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
