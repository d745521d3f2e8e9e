package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"attendance-tracker-go/config"
	"attendance-tracker-go/db"
	"attendance-tracker-go/handlers"
	"attendance-tracker-go/models"
	"attendance-tracker-go/store"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx := context.Background()

	gateway, err := newGateway(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	goal := cfg.Tracker.DefaultGoal
	attendanceStore, err := store.New(gateway, store.Options{
		Goal:    &goal,
		Retries: cfg.Tracker.PersistRetries,
	})
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	// Corrupt or unreadable keys load as empty; report and keep serving.
	if err := attendanceStore.LoadAll(ctx); err != nil {
		log.Printf("Warning: saved state only partially loaded: %v", err)
	}

	if cfg.Tracker.SeedDemo {
		checkAndSeedData(ctx, attendanceStore)
	}

	if cfg.App.Env == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	handlers.NewAPIHandler(attendanceStore).RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	log.Printf("Starting server on port %s (storage: %s)", addr, cfg.Storage.Backend)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func newGateway(ctx context.Context, cfg *config.Config) (db.Gateway, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Println("Using in-memory storage; state is lost on restart")
		return db.NewMemoryGateway(), nil
	case config.BackendPostgres:
		conn, err := db.OpenPostgres(cfg.DatabaseURL())
		if err != nil {
			return nil, err
		}
		gateway, err := db.NewPostgresGateway(conn)
		if err != nil {
			if closeErr := db.ClosePostgres(conn); closeErr != nil {
				log.Printf("Error closing postgres connection: %v", closeErr)
			}
			return nil, err
		}
		return gateway, nil
	default:
		client, err := db.InitializeRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return db.NewRedisGateway(client, cfg.Redis.KeyPrefix), nil
	}
}

// checkAndSeedData adds demo classes when nothing was loaded
func checkAndSeedData(ctx context.Context, s *store.Store) {
	if n := len(s.Classes()); n > 0 {
		log.Printf("Found %d saved classes. Skipping demo data.", n)
		return
	}
	log.Println("No saved classes found. Adding demo data...")
	seedInitialData(ctx, s)
}

// seedInitialData adds a handful of classes and marks two of them
func seedInitialData(ctx context.Context, s *store.Store) {
	demo := []models.NewClassInput{
		{Name: "Data Structures", Time: "Mon 09:00"},
		{Name: "Operating Systems", Time: "Tue 13:00"},
		{Name: "Linear Algebra", Time: "Thu 10:30"},
	}

	var added []models.ClassRecord
	for _, in := range demo {
		rec, err := s.AddClass(ctx, in.Name, in.Time)
		if err != nil && !errors.Is(err, models.ErrPersistenceFailure) {
			log.Printf("Error adding demo class %s: %v", in.Name, err)
			continue
		}
		added = append(added, rec)
	}

	if len(added) >= 2 {
		if err := s.MarkAttendance(ctx, added[0].ID, models.StatusAttended); err != nil {
			log.Printf("Error marking demo class %s: %v", added[0].ID, err)
		}
		if err := s.MarkAttendance(ctx, added[1].ID, models.StatusMissed); err != nil {
			log.Printf("Error marking demo class %s: %v", added[1].ID, err)
		}
	}

	log.Println("Demo data added.")
}
