package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrSlotTaken means a reservation row already exists for the
	// (provider, date, time) tuple, whatever its status.
	ErrSlotTaken = errors.New("slot already reserved")
)

// Repository contains all DB interactions needed by the service and
// the sweeper.
type Repository interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	// ListBlockingReservations returns the held and confirmed
	// reservations of a provider, the exclusion set of an
	// availability query.
	ListBlockingReservations(ctx context.Context, providerID uuid.UUID) ([]Reservation, error)

	// For conflict checks
	GetReservationBySlot(ctx context.Context, providerID uuid.UUID, date, slotTime string) (*Reservation, error)
	GetReservationByID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// CreateReservation inserts a held reservation. The insert and the
	// uniqueness check on (provider, date, time) are one atomic unit;
	// a losing insert returns ErrSlotTaken.
	CreateReservation(ctx context.Context, providerID uuid.UUID, date, slotTime, customerRef string) (*Reservation, error)

	// UpdateReservationStatus transitions status from -> to and returns
	// the updated row, or ErrReservationNotFound when no row is in the
	// from status.
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to ReservationStatus) (*Reservation, error)

	// Expiry sweeper
	FindExpiredUnconfirmed(ctx context.Context, cutoff time.Time) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) error
}
