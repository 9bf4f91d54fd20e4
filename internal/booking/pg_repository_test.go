package booking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/slotwise/provider-booking/internal/db"
)

// Spins up a throwaway Postgres via testcontainers. Gated behind
// RUN_PG_TESTS so plain `go test ./...` stays docker-free.
func setupPgRepo(t *testing.T) (*PgRepository, *pgxpool.Pool) {
	t.Helper()

	if os.Getenv("RUN_PG_TESTS") == "" {
		t.Skip("set RUN_PG_TESTS=1 to run Postgres integration tests")
	}

	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "booking",
				"POSTGRES_PASSWORD": "booking",
				"POSTGRES_DB":       "booking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://booking:booking@%s:%s/booking?sslmode=disable", host, port.Port())

	pool, err := db.ConnectPostgres(ctx, dsn, 0)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))

	return NewPgRepository(pool), pool
}

func insertProvider(t *testing.T, pool *pgxpool.Pool, name string, windows ...Window) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO providers (id, name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)

	for _, w := range windows {
		_, err := pool.Exec(ctx, `
			INSERT INTO provider_windows (provider_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4)
		`, id, w.DayOfWeek, w.StartTime, w.EndTime)
		require.NoError(t, err)
	}

	return id
}

func TestPgRepository(t *testing.T) {
	repo, pool := setupPgRepo(t)
	ctx := context.Background()

	providerID := insertProvider(t, pool, "Harbor Clinic",
		Window{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"},
		Window{DayOfWeek: 3, StartTime: "10:00", EndTime: "14:00"},
	)

	t.Run("GetProviderByID", func(t *testing.T) {
		p, err := repo.GetProviderByID(ctx, providerID)
		require.NoError(t, err)
		assert.Equal(t, "Harbor Clinic", p.Name)
		require.Len(t, p.Windows, 2)
		assert.Equal(t, Window{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}, p.Windows[0])

		_, err = repo.GetProviderByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	t.Run("CreateAndConflict", func(t *testing.T) {
		res, err := repo.CreateReservation(ctx, providerID, "2025-03-10", "9:00 AM", "alice")
		require.NoError(t, err)
		assert.Equal(t, StatusHeld, res.Status)
		assert.WithinDuration(t, time.Now(), res.CreatedAt, time.Minute)

		_, err = repo.CreateReservation(ctx, providerID, "2025-03-10", "9:00 AM", "bob")
		assert.ErrorIs(t, err, ErrSlotTaken)

		got, err := repo.GetReservationBySlot(ctx, providerID, "2025-03-10", "9:00 AM")
		require.NoError(t, err)
		assert.Equal(t, res.ID, got.ID)
	})

	t.Run("AnyStatusBlocksCreate", func(t *testing.T) {
		// The unique constraint spans all statuses: expired and
		// confirmed rows own their tuple just like held ones, until
		// the sweeper deletes them.
		res, err := repo.CreateReservation(ctx, providerID, "2025-03-15", "9:00 AM", "gina")
		require.NoError(t, err)
		_, err = repo.UpdateReservationStatus(ctx, res.ID, StatusHeld, StatusExpired)
		require.NoError(t, err)

		_, err = repo.CreateReservation(ctx, providerID, "2025-03-15", "9:00 AM", "hank")
		assert.ErrorIs(t, err, ErrSlotTaken)

		confirmed, err := repo.CreateReservation(ctx, providerID, "2025-03-15", "10:00 AM", "iris")
		require.NoError(t, err)
		_, err = repo.UpdateReservationStatus(ctx, confirmed.ID, StatusHeld, StatusConfirmed)
		require.NoError(t, err)

		_, err = repo.CreateReservation(ctx, providerID, "2025-03-15", "10:00 AM", "jack")
		assert.ErrorIs(t, err, ErrSlotTaken)

		// Deleting the expired row is what frees the slot.
		require.NoError(t, repo.DeleteReservation(ctx, res.ID))
		_, err = repo.CreateReservation(ctx, providerID, "2025-03-15", "9:00 AM", "hank")
		assert.NoError(t, err)
	})

	t.Run("ConcurrentCreatesOneWinner", func(t *testing.T) {
		const attempts = 16
		var winners, conflicts int64

		g, gctx := errgroup.WithContext(ctx)
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			g.Go(func() error {
				_, err := repo.CreateReservation(gctx, providerID, "2025-03-11", "10:00 AM", "racer")
				results <- err
				return nil
			})
		}
		require.NoError(t, g.Wait())
		close(results)

		for err := range results {
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrSlotTaken):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.EqualValues(t, 1, winners)
		assert.EqualValues(t, attempts-1, conflicts)
	})

	t.Run("StatusTransitionIsGuarded", func(t *testing.T) {
		res, err := repo.CreateReservation(ctx, providerID, "2025-03-12", "11:00 AM", "carol")
		require.NoError(t, err)

		updated, err := repo.UpdateReservationStatus(ctx, res.ID, StatusHeld, StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, updated.Status)

		// No longer held, so the guarded update matches nothing.
		_, err = repo.UpdateReservationStatus(ctx, res.ID, StatusHeld, StatusExpired)
		assert.ErrorIs(t, err, ErrReservationNotFound)
	})

	t.Run("BlockingReservationsExcludeExpired", func(t *testing.T) {
		res, err := repo.CreateReservation(ctx, providerID, "2025-03-13", "9:00 AM", "dave")
		require.NoError(t, err)
		_, err = repo.UpdateReservationStatus(ctx, res.ID, StatusHeld, StatusExpired)
		require.NoError(t, err)

		blocking, err := repo.ListBlockingReservations(ctx, providerID)
		require.NoError(t, err)
		for _, b := range blocking {
			assert.NotEqual(t, res.ID, b.ID)
		}
	})

	t.Run("SweepQueriesAndDelete", func(t *testing.T) {
		res, err := repo.CreateReservation(ctx, providerID, "2025-03-14", "9:00 AM", "erin")
		require.NoError(t, err)

		candidates, err := repo.FindExpiredUnconfirmed(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		found := false
		for _, c := range candidates {
			if c.ID == res.ID {
				found = true
			}
		}
		assert.True(t, found, "fresh held reservation should match a future cutoff")

		// Confirmed rows never show up as sweep candidates.
		confirmed, err := repo.CreateReservation(ctx, providerID, "2025-03-14", "10:00 AM", "frank")
		require.NoError(t, err)
		_, err = repo.UpdateReservationStatus(ctx, confirmed.ID, StatusHeld, StatusConfirmed)
		require.NoError(t, err)

		candidates, err = repo.FindExpiredUnconfirmed(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		for _, c := range candidates {
			assert.NotEqual(t, confirmed.ID, c.ID)
		}

		require.NoError(t, repo.DeleteReservation(ctx, res.ID))
		_, err = repo.GetReservationByID(ctx, res.ID)
		assert.ErrorIs(t, err, ErrReservationNotFound)

		// Deleting again is a no-op, which keeps the sweep idempotent.
		assert.NoError(t, repo.DeleteReservation(ctx, res.ID))
	})
}
