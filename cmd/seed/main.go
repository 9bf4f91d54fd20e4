package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/provider-booking/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn, 0)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedProviders(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed providers: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d providers", count)

	services := []string{
		"Salon",
		"Barbershop",
		"Physio",
		"Dental",
		"Massage",
		"Tutoring",
		"Photography",
		"Consulting",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := fmt.Sprintf("%s %s", gofakeit.LastName(), services[gofakeit.Number(0, len(services)-1)])

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name)
			VALUES ($1, $2)
		`, id, name)
		if err != nil {
			return err
		}

		// A working week of Mon-Fri windows, with varied hours.
		startHour := gofakeit.Number(8, 10)
		endHour := gofakeit.Number(16, 18)
		for day := 1; day <= 5; day++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO provider_windows (provider_id, day_of_week, start_time, end_time)
				VALUES ($1, $2, $3, $4)
			`, id, day, fmt.Sprintf("%02d:00", startHour), fmt.Sprintf("%02d:00", endHour))
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("providers seeded")
	return nil
}
