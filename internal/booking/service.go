package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slotwise/provider-booking/internal/config"
	"github.com/slotwise/provider-booking/internal/observability"
	redisclient "github.com/slotwise/provider-booking/internal/redis"
)

var (
	// ErrSlotContended means another request holds the slot lock right
	// now. The caller can simply retry.
	ErrSlotContended = errors.New("slot is currently being reserved, please retry")

	// ErrAlreadyResolved means payment resolution was attempted on a
	// reservation that is no longer held.
	ErrAlreadyResolved = errors.New("reservation payment already resolved")

	ErrInvalidOutcome = errors.New("payment outcome must be confirmed or expired")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	logger *zap.Logger

	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// ProviderName returns the display name of a provider.
func (s *Service) ProviderName(ctx context.Context, providerID uuid.UUID) (string, error) {
	p, err := s.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// ListOpenSlots computes the bookable slots of a provider over the
// configured horizon. Slots are derived fresh from the provider's
// weekly windows and the current reservation snapshot on every call.
func (s *Service) ListOpenSlots(ctx context.Context, providerID uuid.UUID) ([]Slot, error) {
	p, err := s.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	blocking, err := s.repo.ListBlockingReservations(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("list blocking reservations: %w", err)
	}

	return ComputeSlots(p, s.now(), s.cfg.HorizonDays, slotKeySet(blocking))
}

// CreateReservation places a hold on a slot. Any existing reservation
// for the tuple blocks the create, whatever its status; an expired row
// keeps the slot blocked until the sweeper removes it.
func (s *Service) CreateReservation(ctx context.Context, providerID uuid.UUID, date, slotTime, customerRef string) (*Reservation, error) {
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	var created *Reservation

	err := s.locker.WithSlotLock(ctx, providerID, date, slotTime, func(lockCtx context.Context) error {
		// Inside the critical section re-check the slot before
		// inserting, so most losers fail on the cheap read.
		existing, err := s.repo.GetReservationBySlot(lockCtx, providerID, date, slotTime)
		if err != nil && !errors.Is(err, ErrReservationNotFound) {
			return fmt.Errorf("check slot: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		res, err := s.repo.CreateReservation(lockCtx, providerID, date, slotTime, customerRef)
		if err != nil {
			return err
		}

		created = res
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			observability.SlotConflicts.Inc()
			return nil, ErrSlotContended
		}
		if errors.Is(err, ErrSlotTaken) {
			observability.SlotConflicts.Inc()
			return nil, err
		}
		return nil, err
	}

	observability.ReservationsCreated.Inc()
	s.logger.Info("reservation held",
		zap.String("reservation_id", created.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.String("date", date),
		zap.String("time", slotTime),
	)

	return created, nil
}

// ResolvePayment finalizes a held reservation with the simulated
// payment outcome. Only held reservations can be resolved; a second
// resolution fails with ErrAlreadyResolved.
func (s *Service) ResolvePayment(ctx context.Context, id uuid.UUID, outcome ReservationStatus) (*Reservation, error) {
	if outcome != StatusConfirmed && outcome != StatusExpired {
		return nil, ErrInvalidOutcome
	}

	updated, err := s.repo.UpdateReservationStatus(ctx, id, StatusHeld, outcome)
	if err == nil {
		s.logger.Info("payment resolved",
			zap.String("reservation_id", id.String()),
			zap.String("outcome", string(outcome)),
		)
		return updated, nil
	}
	if !errors.Is(err, ErrReservationNotFound) {
		return nil, fmt.Errorf("resolve payment: %w", err)
	}

	// The guarded update matched no row: either the reservation is
	// gone (possibly swept) or it already left the held state.
	if _, getErr := s.repo.GetReservationByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrAlreadyResolved
}

// SweepExpired runs one sweep: every reservation not yet confirmed
// whose grace period has elapsed is hard-deleted, freeing its slot. A
// failed delete is logged and skipped, never aborting the sweep.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.GracePeriod)

	candidates, err := s.repo.FindExpiredUnconfirmed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find expired reservations: %w", err)
	}

	deleted := 0
	for _, r := range candidates {
		if err := s.repo.DeleteReservation(ctx, r.ID); err != nil {
			observability.SweepFailures.Inc()
			s.logger.Error("failed to release expired reservation",
				zap.String("reservation_id", r.ID.String()),
				zap.Error(err),
			)
			continue
		}
		deleted++
		observability.SweepDeleted.Inc()
		s.logger.Info("released expired reservation",
			zap.String("reservation_id", r.ID.String()),
			zap.String("provider_id", r.ProviderID.String()),
			zap.String("date", r.Date),
			zap.String("time", r.Time),
			zap.String("status", string(r.Status)),
		)
	}

	return deleted, nil
}
