// Command seed fills a development database with demo moderation data.
package main

import (
	"context"
	"flag"
	"log"

	"warden/internal/config"
	"warden/internal/database"
	"warden/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.Users, "Number of regular users to create")
	admins := flag.Int("admins", defaults.Admins, "Number of admins to create")
	pending := flag.Int("pending", defaults.PendingAdmins, "Number of pending_admin users without a request row")
	requests := flag.Int("requests", defaults.FormalRequests, "Number of users with a formal approval request")
	banned := flag.Int("banned", defaults.Banned, "How many of the regular users start banned")
	clean := flag.Bool("clean", true, "Clean database before seeding")
	fixed := flag.Int64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Schema apply failed: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Users:          *users,
		Admins:         *admins,
		PendingAdmins:  *pending,
		FormalRequests: *requests,
		Banned:         *banned,
		ShouldClean:    *clean,
		Seed:           *fixed,
	})
	sum, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %s", sum)
}
