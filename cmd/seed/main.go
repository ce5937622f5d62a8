package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dfarias/barber-agenda/internal/db"
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

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providers, err := seedProviders(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedServices(context.Background(), pool, providers); err != nil {
		log.Fatalf("seed services: %v", err)
	}
	if err := seedClients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed clients: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specialties := []string{
		"Classic cuts",
		"Fades",
		"Beard styling",
		"Hot towel shave",
		"Kids cuts",
		"Coloring",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedServices(ctx context.Context, pool *pgxpool.Pool, providers []uuid.UUID) error {
	log.Printf("seeding services for %d providers", len(providers))

	catalog := []struct {
		name     string
		duration int
		price    int
	}{
		{"Haircut", 30, 4500},
		{"Haircut + beard", 60, 7000},
		{"Beard trim", 30, 3000},
		{"Hot towel shave", 45, 5500},
		{"Full grooming", 90, 11000},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, providerID := range providers {
		// Each barber offers a random subset of the catalog.
		for _, svc := range catalog {
			if gofakeit.Number(0, 9) < 3 {
				continue
			}
			active := gofakeit.Number(0, 9) > 0 // a few retired services

			_, err := tx.Exec(ctx, `
				INSERT INTO services (id, provider_id, name, duration_minutes, price_cents, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			`, uuid.New(), providerID, svc.name, svc.duration, svc.price, active)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("services seeded")
	return nil
}

func seedClients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d clients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()
			phone := gofakeit.Phone()

			_, err := tx.Exec(ctx, `
				INSERT INTO clients (id, name, email, phone, created_at, updated_at)
				VALUES ($1, $2, $3, $4, now(), now())
			`, id, name, email, phone)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("clients seeded: %d/%d", end, count)
	}

	log.Println("clients seeded")
	return nil
}
