package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/costpilot-dev/costpilot/db"
	"github.com/costpilot-dev/costpilot/internal/auth"
	"github.com/costpilot-dev/costpilot/internal/bootstrap"
	"github.com/costpilot-dev/costpilot/internal/handlers"
	"github.com/costpilot-dev/costpilot/internal/models"
	"github.com/costpilot-dev/costpilot/internal/notifications"
	"github.com/costpilot-dev/costpilot/internal/push"
	"github.com/costpilot-dev/costpilot/internal/router"
	"github.com/costpilot-dev/costpilot/internal/scanner"
	"github.com/costpilot-dev/costpilot/internal/services"
	"github.com/costpilot-dev/costpilot/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	if err := auth.InitJWTSecret(); err != nil {
		log.Fatalf("Failed to initialize JWT secret: %v", err)
	}

	dsn := os.Getenv("DATABASE_URL")

	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	profiles, notificationStore, linkStore := buildStores()

	hub := notifications.NewHub()
	tracker := notifications.NewTracker(notificationStore, hub)

	provider := push.NewHTTPProvider(
		os.Getenv("PUSH_API_URL"),
		os.Getenv("PUSH_APP_ID"),
		os.Getenv("PUSH_API_KEY"),
	)

	coordinator := push.NewCoordinator(provider, linkStore)

	mailer := services.NewEmailServiceFromEnv()

	if !mailer.IsConfigured() {
		log.Println("SMTP not configured, email delivery disabled")
	}

	deadlineScanner := scanner.New(db.DB, tracker, profiles, linkStore, provider, mailer)

	bootstrapper := bootstrap.New(profiles)
	bootstrapper.HealthCheck = func(ctx context.Context, user models.User) {
		if _, err := deadlineScanner.RunForUser(ctx, user.ID); err != nil {
			log.Printf("Sign-in deadline sweep for user %d failed: %v", user.ID, err)
		}
	}

	handlers.Configure(handlers.Deps{
		Profiles:    profiles,
		Tracker:     tracker,
		Coordinator: coordinator,
		Scanner:     deadlineScanner,
		Hub:         hub,
		Mailer:      mailer,
		Bootstrap:   bootstrapper,
	})

	r := router.NewRouter(profiles, bootstrapper)

	var port string

	if port = os.Getenv("PORT"); port == "" {
		port = "3000"
		log.Println("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildStores picks the persistence adapter for the core records. The
// relational adapter shares the gorm handle; the document adapter keeps
// profiles, notifications and push links in Redis instead.
func buildStores() (store.ProfileStore, store.NotificationStore, store.PushLinkStore) {
	backend := os.Getenv("STORE_BACKEND")

	if backend == "redis" {
		redisURL := os.Getenv("REDIS_URL")

		if redisURL == "" {
			log.Fatal("STORE_BACKEND=redis requires REDIS_URL to be set")
		}

		documentStore, err := store.NewDocumentStore(redisURL)

		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}

		log.Println("Using Redis document store for core records")

		return documentStore, documentStore, documentStore
	}

	postgresStore := store.NewPostgresStore(db.DB)

	return postgresStore, postgresStore, postgresStore
}
