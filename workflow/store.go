package workflow

import (
	"context"
	"errors"

	"valet-backend/models"
)

var (
	// ErrNotFound is returned when no request exists with the given id.
	ErrNotFound = errors.New("parking request not found")
	// ErrConflict is returned when a conditional mutation loses (e.g. two
	// drivers racing to claim the same job, or an illegal status transition).
	ErrConflict = errors.New("parking request state conflict")
)

// Store is the repository over parking request records. Records are keyed by
// id; Mutate is the only write path for existing records and must apply fn
// atomically with respect to other mutations of the same record.
type Store interface {
	// All returns every record in the store, in no particular order.
	All(ctx context.Context) ([]models.ParkingRequest, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*models.ParkingRequest, error)

	// Create appends a new record. The caller assigns the id.
	Create(ctx context.Context, req *models.ParkingRequest) error

	// Mutate loads the record, applies fn under exclusive access and persists
	// the result. An error from fn aborts the write and is returned as-is.
	Mutate(ctx context.Context, id int64, fn func(*models.ParkingRequest) error) (*models.ParkingRequest, error)

	// AppendEvent records a post-transition snapshot for the audit trail.
	// Implementations without an event log may ignore it and return nil.
	AppendEvent(ctx context.Context, ev *models.RequestEvent) error

	// Events returns the recorded snapshots for a request, oldest first.
	Events(ctx context.Context, requestID int64) ([]models.RequestEvent, error)
}
