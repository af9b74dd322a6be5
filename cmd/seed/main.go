// Command seed fills the database with demo readers, content and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"folio/internal/bootstrap"
	"folio/internal/config"
	"folio/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of readers to create")
	numEssays := flag.Int("essays", defaults.NumEssays, "Number of essays to create")
	numReviews := flag.Int("reviews", defaults.NumReviews, "Number of reviews to create")
	maxThread := flag.Int("thread", defaults.MaxThread, "Maximum comments per essay or review")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumEssays = *numEssays
	opts.NumReviews = *numReviews
	opts.MaxThread = *maxThread
	opts.Seed = *randSeed

	ctx := context.Background()
	s := seed.NewSeeder(rt.DB, opts)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Printf("Cleanup failed: %v", err)
			return
		}
	}
	if _, err := s.Run(ctx); err != nil {
		log.Printf("Seeding failed: %v", err)
		return
	}
	log.Println("Seeding done. Issue a token with: go run ./cmd/admin token 1")
}
