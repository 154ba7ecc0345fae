package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postopcare/clinic-scheduling/internal/db"
)

// The simulator drives the booking race end to end: N workers request
// the exact same (clinic, date, time) against a running api-server and
// the run fails unless exactly one booking succeeds and every other
// attempt is rejected with a conflict.

type SimConfig struct {
	APIBaseURL  string
	PostgresDSN string
	Workers     int
	Date        string
	Time        string
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:  getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		Workers:     getEnvInt("SIM_WORKERS", 25),
		Date:        getEnv("SIM_DATE", time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02")),
		Time:        getEnv("SIM_TIME", "09:00"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

type attemptResult struct {
	status  int
	code    string
	latency time.Duration
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	clinicID, patientIDs, err := pickClinicAndPatients(ctx, pool, cfg.Workers)
	if err != nil {
		log.Fatalf("pick simulation data: %v", err)
	}
	log.Printf("racing %d workers for clinic=%s date=%s time=%s", cfg.Workers, clinicID, cfg.Date, cfg.Time)

	client := &http.Client{Timeout: 10 * time.Second}

	var (
		wg        sync.WaitGroup
		successes int64
		conflicts int64
		others    int64
		mu        sync.Mutex
		results   []attemptResult
	)

	start := make(chan struct{})
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(patientID uuid.UUID) {
			defer wg.Done()
			<-start

			res, err := bookOnce(client, cfg, clinicID, patientID)
			if err != nil {
				atomic.AddInt64(&others, 1)
				log.Printf("booking request error: %v", err)
				return
			}

			switch {
			case res.status == http.StatusCreated:
				atomic.AddInt64(&successes, 1)
			case res.status == http.StatusConflict:
				atomic.AddInt64(&conflicts, 1)
			default:
				atomic.AddInt64(&others, 1)
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(patientIDs[i%len(patientIDs)])
	}

	close(start)
	wg.Wait()

	log.Printf("results: success=%d conflict=%d other=%d", successes, conflicts, others)
	for _, r := range results {
		if r.status != http.StatusCreated && r.status != http.StatusConflict {
			log.Printf("unexpected response: status=%d code=%s", r.status, r.code)
		}
	}

	if successes != 1 {
		log.Fatalf("RACE VIOLATION: expected exactly 1 successful booking, got %d", successes)
	}
	log.Println("race held: exactly one booking won the slot")
}

func pickClinicAndPatients(ctx context.Context, pool *pgxpool.Pool, n int) (uuid.UUID, []uuid.UUID, error) {
	var clinicID uuid.UUID
	err := pool.QueryRow(ctx, `SELECT id FROM clinics LIMIT 1`).Scan(&clinicID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("load clinic: %w", err)
	}

	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		var id uuid.UUID
		err := pool.QueryRow(ctx, `
			SELECT id FROM patients WHERE clinic_id = $1 OFFSET $2 LIMIT 1
		`, clinicID, i).Scan(&id)
		if err != nil {
			break
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return uuid.Nil, nil, fmt.Errorf("no patients for clinic %s, run the seeder first", clinicID)
	}
	return clinicID, ids, nil
}

func bookOnce(client *http.Client, cfg SimConfig, clinicID, patientID uuid.UUID) (attemptResult, error) {
	body, _ := json.Marshal(map[string]any{
		"clinic_id":  clinicID.String(),
		"patient_id": patientID.String(),
		"date":       cfg.Date,
		"time":       cfg.Time,
		"kind":       "consultation",
	})

	start := time.Now()
	resp, err := client.Post(cfg.APIBaseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		return attemptResult{}, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &parsed)

	return attemptResult{
		status:  resp.StatusCode,
		code:    parsed.Error,
		latency: time.Since(start),
	}, nil
}
