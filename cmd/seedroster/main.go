// Command seedroster populates the team roster with a fixed set of demo
// members so boards have identities to assign before real users sign in.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/insidedeveloper888/draftio/internal/config"
	"github.com/insidedeveloper888/draftio/internal/domain/models"
	"github.com/insidedeveloper888/draftio/internal/store/postgres"
)

var demoMembers = []models.TeamMember{
	{UID: "demo-ava", DisplayName: "Ava Chen", Email: "ava@example.com"},
	{UID: "demo-ben", DisplayName: "Ben Okafor", Email: "ben@example.com"},
	{UID: "demo-carla", DisplayName: "Carla Reyes", Email: "carla@example.com"},
	{UID: "demo-dmitri", DisplayName: "Dmitri Volkov", Email: "dmitri@example.com"},
	{UID: "demo-erin", DisplayName: "Erin Walsh", Email: "erin@example.com"},
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	store := postgres.New(pool, postgres.NewTableNames(cfg.TablePrefix), nil, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	now := models.Millis(time.Now())
	for _, m := range demoMembers {
		m.LastSignIn = now
		if err := store.UpsertMember(ctx, &m); err != nil {
			log.Fatalf("Failed to seed member %s: %v", m.UID, err)
		}
		logger.Info("seeded member", "uid", m.UID, "name", m.DisplayName)
	}

	logger.Info("roster seeded", "members", len(demoMembers))
}
