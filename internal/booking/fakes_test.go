package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository for tests. The mutex makes the
// tuple-uniqueness check and the insert one atomic step, matching the
// unique-constraint guarantee of the pgx implementation.
type memRepo struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]*Provider
	reservations map[uuid.UUID]*Reservation

	deleteErr map[uuid.UUID]error
	findErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{
		providers:    make(map[uuid.UUID]*Provider),
		reservations: make(map[uuid.UUID]*Reservation),
		deleteErr:    make(map[uuid.UUID]error),
	}
}

func (m *memRepo) addProvider(name string, windows ...Window) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.providers[id] = &Provider{ID: id, Name: name, Windows: windows}
	return id
}

func (m *memRepo) addReservation(providerID uuid.UUID, date, slotTime string, status ReservationStatus, createdAt time.Time) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.reservations[id] = &Reservation{
		ID:          id,
		ProviderID:  providerID,
		CustomerRef: "test-customer",
		Date:        date,
		Time:        slotTime,
		Status:      status,
		CreatedAt:   createdAt,
	}
	return id
}

func (m *memRepo) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) ListBlockingReservations(_ context.Context, providerID uuid.UUID) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, r := range m.reservations {
		if r.ProviderID == providerID && (r.Status == StatusHeld || r.Status == StatusConfirmed) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRepo) GetReservationBySlot(_ context.Context, providerID uuid.UUID, date, slotTime string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.ProviderID == providerID && r.Date == date && r.Time == slotTime {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrReservationNotFound
}

func (m *memRepo) GetReservationByID(_ context.Context, id uuid.UUID) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) CreateReservation(_ context.Context, providerID uuid.UUID, date, slotTime, customerRef string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reservations {
		if r.ProviderID == providerID && r.Date == date && r.Time == slotTime {
			return nil, ErrSlotTaken
		}
	}
	r := &Reservation{
		ID:          uuid.New(),
		ProviderID:  providerID,
		CustomerRef: customerRef,
		Date:        date,
		Time:        slotTime,
		Status:      StatusHeld,
		CreatedAt:   time.Now(),
	}
	m.reservations[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m *memRepo) UpdateReservationStatus(_ context.Context, id uuid.UUID, from, to ReservationStatus) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok || r.Status != from {
		return nil, ErrReservationNotFound
	}
	r.Status = to
	cp := *r
	return &cp, nil
}

func (m *memRepo) FindExpiredUnconfirmed(_ context.Context, cutoff time.Time) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []Reservation
	for _, r := range m.reservations {
		if r.Status != StatusConfirmed && !r.CreatedAt.After(cutoff) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRepo) DeleteReservation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	delete(m.reservations, id)
	return nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

var _ Repository = (*memRepo)(nil)

// noopLocker runs the critical section directly. Conflict exclusivity
// in tests rests on memRepo's atomic check-and-insert alone, which is
// exactly the property the service must not depend on the lock for.
type noopLocker struct{}

func (noopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
