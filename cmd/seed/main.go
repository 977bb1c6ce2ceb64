package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendavel/agendavel-api/internal/auth"
	"github.com/agendavel/agendavel-api/internal/config"
	"github.com/agendavel/agendavel-api/internal/db"
	"github.com/agendavel/agendavel-api/internal/directory"
)

var areas = []string{
	"Psicologia",
	"Nutrição",
	"Fisioterapia",
	"Advocacia",
	"Contabilidade",
	"Coaching",
	"Fonoaudiologia",
	"Terapia Ocupacional",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)

	adminID, err := seedUser(context.Background(), pool, directory.RoleAdmin, directory.StatusActive)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	printToken(tokens, adminID, directory.RoleAdmin)

	providerIDs, err := seedProviders(context.Background(), pool, 20)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	printToken(tokens, providerIDs[0], directory.RoleProvider)

	clientIDs, err := seedClients(context.Background(), pool, 200)
	if err != nil {
		log.Fatalf("seed clients: %v", err)
	}
	printToken(tokens, clientIDs[0], directory.RoleClient)

	log.Println("seed complete")
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, role directory.Role, status directory.AccountStatus) (uuid.UUID, error) {
	id := uuid.New()

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, name, social_name, email, role, status, created_at, updated_at)
		VALUES ($1, $2, NULL, $3, $4, $5, now(), now())
	`, id, gofakeit.Name(), gofakeit.Email(), role, status)
	if err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		area := areas[gofakeit.Number(0, len(areas)-1)]

		// Every fourth provider stays pending so the approval flow has data.
		status := directory.StatusActive
		if i%4 == 3 {
			status = directory.StatusPendingApproval
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, social_name, email, role, status, created_at, updated_at)
			VALUES ($1, $2, NULL, $3, 'ATENDENTE', $4, now(), now())
		`, id, gofakeit.Name(), gofakeit.Email(), status)
		if err != nil {
			return nil, err
		}

		qualification := gofakeit.JobTitle()
		specialties := gofakeit.JobDescriptor()
		duration := []int{30, 45, 60}[gofakeit.Number(0, 2)]

		_, err = tx.Exec(ctx, `
			INSERT INTO provider_details
				(user_id, area, qualification, specialties, registration, years_experience,
				 accepts_online, accepts_in_person, default_duration_min)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, id, area, qualification, specialties, gofakeit.LetterN(8), gofakeit.Number(1, 30),
			gofakeit.Bool(), true, duration)
		if err != nil {
			return nil, err
		}

		// Half the providers keep the default template; the rest get
		// explicit weekday windows.
		if i%2 == 0 {
			for weekday := time.Monday; weekday <= time.Friday; weekday++ {
				_, err = tx.Exec(ctx, `
					INSERT INTO working_hours (id, provider_id, weekday, start_minute, end_minute)
					VALUES ($1, $2, $3, $4, $5)
				`, uuid.New(), id, int(weekday), 9*60, 17*60)
				if err != nil {
					return nil, err
				}
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedClients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d clients", count)

	const batchSize = 100

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, social_name, email, role, status, created_at, updated_at)
				VALUES ($1, $2, NULL, $3, 'CLIENTE', 'ATIVO', now(), now())
			`, id, gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("clients seeded: %d/%d", end, count)
	}

	return ids, nil
}

func printToken(tokens *auth.TokenService, userID uuid.UUID, role directory.Role) {
	token, err := tokens.Generate(userID, string(role))
	if err != nil {
		log.Printf("could not mint %s token: %v", role, err)
		return
	}
	fmt.Printf("%s %s token: %s\n", role, userID, token)
}
