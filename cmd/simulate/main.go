package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/slotwise/provider-booking/internal/db"
)

// Booking-storm tool: hammers the API with concurrent workers that
// list slots, reserve them and resolve payments, then reports how the
// conflict handling held up.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		baseURL      = flag.String("url", "http://localhost:8080", "API base URL")
		workers      = flag.Int("workers", 16, "concurrent workers")
		duration     = flag.Duration("duration", 30*time.Second, "how long to run")
		confirmRatio = flag.Float64("confirm", 0.7, "share of reservations resolved as confirmed")
	)
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required to discover providers")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	providers, err := loadProviderIDs(ctx, dsn)
	if err != nil {
		log.Fatalf("load providers: %v", err)
	}
	if len(providers) == 0 {
		log.Fatal("no providers found, run cmd/seed first")
	}
	log.Printf("simulating against %d providers with %d workers for %s", len(providers), *workers, *duration)

	var created, conflicts, resolved, errs int64
	client := &http.Client{Timeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *workers; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				runIteration(gctx, client, *baseURL, providers, *confirmRatio, &created, &conflicts, &resolved, &errs)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("done: created=%d conflicts=%d resolved=%d errors=%d",
		atomic.LoadInt64(&created),
		atomic.LoadInt64(&conflicts),
		atomic.LoadInt64(&resolved),
		atomic.LoadInt64(&errs),
	)
}

func loadProviderIDs(ctx context.Context, dsn string) ([]uuid.UUID, error) {
	pool, err := db.ConnectPostgres(ctx, dsn, 0)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `SELECT id FROM providers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type slotResp struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}

type reservationResp struct {
	ID uuid.UUID `json:"id"`
}

func runIteration(ctx context.Context, client *http.Client, baseURL string, providers []uuid.UUID, confirmRatio float64, created, conflicts, resolved, errs *int64) {
	providerID := providers[rand.Intn(len(providers))]

	slots, err := fetchSlots(ctx, client, baseURL, providerID)
	if err != nil || len(slots) == 0 {
		if err != nil {
			atomic.AddInt64(errs, 1)
		}
		return
	}

	slot := slots[rand.Intn(len(slots))]

	body, _ := json.Marshal(map[string]string{
		"provider_id":  providerID.String(),
		"date":         slot.Date,
		"time":         slot.Time,
		"customer_ref": "sim-" + uuid.NewString()[:8],
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/reservations", bytes.NewReader(body))
	if err != nil {
		atomic.AddInt64(errs, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(errs, 1)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddInt64(created, 1)
	case http.StatusConflict:
		atomic.AddInt64(conflicts, 1)
		return
	default:
		atomic.AddInt64(errs, 1)
		return
	}

	var res reservationResp
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		atomic.AddInt64(errs, 1)
		return
	}

	outcome := "confirmed"
	if rand.Float64() >= confirmRatio {
		outcome = "expired"
	}
	payBody, _ := json.Marshal(map[string]string{"outcome": outcome})
	payReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/reservations/%s/payment", baseURL, res.ID), bytes.NewReader(payBody))
	if err != nil {
		atomic.AddInt64(errs, 1)
		return
	}
	payReq.Header.Set("Content-Type", "application/json")

	payResp, err := client.Do(payReq)
	if err != nil {
		atomic.AddInt64(errs, 1)
		return
	}
	defer payResp.Body.Close()

	if payResp.StatusCode == http.StatusOK {
		atomic.AddInt64(resolved, 1)
	} else {
		atomic.AddInt64(errs, 1)
	}
}

func fetchSlots(ctx context.Context, client *http.Client, baseURL string, providerID uuid.UUID) ([]slotResp, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/providers/%s/slots", baseURL, providerID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slots request returned %d", resp.StatusCode)
	}

	var slots []slotResp
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		return nil, err
	}
	return slots, nil
}
