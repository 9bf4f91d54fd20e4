package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RunsImmediatelyOnStart(t *testing.T) {
	repo := newMemRepo()
	providerID := repo.addProvider("p")
	repo.addReservation(providerID, "2025-03-10", "9:00 AM", StatusHeld, time.Now().Add(-10*time.Minute))

	svc := newTestService(repo)
	sweeper := NewSweeper(svc, time.Hour, svc.logger)

	sweeper.Start(context.Background())
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		return repo.count() == 0
	}, 2*time.Second, 10*time.Millisecond, "initial sweep never released the expired hold")
}

func TestSweeper_SweepsOnTicks(t *testing.T) {
	repo := newMemRepo()
	providerID := repo.addProvider("p")

	svc := newTestService(repo)
	sweeper := NewSweeper(svc, 20*time.Millisecond, svc.logger)

	sweeper.Start(context.Background())
	defer sweeper.Stop()

	// Added after the initial sweep, so only a tick can remove it.
	time.Sleep(30 * time.Millisecond)
	repo.addReservation(providerID, "2025-03-10", "9:00 AM", StatusHeld, time.Now().Add(-10*time.Minute))

	require.Eventually(t, func() bool {
		return repo.count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSweeper_StopEndsLoop(t *testing.T) {
	repo := newMemRepo()
	providerID := repo.addProvider("p")

	svc := newTestService(repo)
	sweeper := NewSweeper(svc, 10*time.Millisecond, svc.logger)

	sweeper.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
	time.Sleep(30 * time.Millisecond)

	// No sweeps after Stop: an expired hold added now must survive.
	id := repo.addReservation(providerID, "2025-03-10", "9:00 AM", StatusHeld, time.Now().Add(-10*time.Minute))
	time.Sleep(50 * time.Millisecond)

	_, err := repo.GetReservationByID(context.Background(), id)
	assert.NoError(t, err)
}

func TestSweeper_SurvivesFindFailures(t *testing.T) {
	repo := newMemRepo()
	providerID := repo.addProvider("p")
	repo.findErr = context.DeadlineExceeded

	svc := newTestService(repo)
	sweeper := NewSweeper(svc, 20*time.Millisecond, svc.logger)

	sweeper.Start(context.Background())
	defer sweeper.Stop()

	time.Sleep(60 * time.Millisecond)

	// Storage comes back; the next tick must still run and sweep.
	repo.mu.Lock()
	repo.findErr = nil
	repo.mu.Unlock()
	repo.addReservation(providerID, "2025-03-10", "9:00 AM", StatusHeld, time.Now().Add(-10*time.Minute))

	require.Eventually(t, func() bool {
		return repo.count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
