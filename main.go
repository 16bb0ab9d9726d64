package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cricket-scoring-system/broadcast"
	"cricket-scoring-system/handlers"
	"cricket-scoring-system/middleware"
	"cricket-scoring-system/models"
	"cricket-scoring-system/services"
	"cricket-scoring-system/utils"
	"cricket-scoring-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		AppName: "cricket-scoring-system",
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Innings{},
		&models.Over{},
		&models.Ball{},
		&models.ScorecardArchive{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := broadcast.NewHub()
	go hub.Run(ctx)

	// When REDIS_URL is set, scoring events also flow through a Redis stream
	// so every replica's subscribers see them. Without it the in-process hub
	// serves a single instance on its own.
	var live broadcast.Publisher = hub
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		relay := broadcast.NewRelay(hub, redis.NewClient(opts), uuid.NewString())
		go relay.Consume(ctx)
		live = relay
		log.Println("✅ Redis relay enabled — events fan out across replicas")
	}

	matchServiceURL := os.Getenv("MATCH_SERVICE_URL")
	if matchServiceURL == "" {
		log.Fatal("MATCH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("SCORING_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("SCORING_SERVICE_TOKEN environment variable not set")
	}
	matchClient := services.NewMatchServiceClient(matchServiceURL, serviceToken)

	inningsService := services.NewInningsService(db, matchClient, live)
	overService := services.NewOverService(db, live)
	ballService := services.NewBallService(db, live)
	snapshotService := services.NewSnapshotService(db)

	archiver := workers.NewScorecardArchiver(db)
	go workers.PollScorecards(ctx, archiver, 30*time.Second)

	services.StartSnapshotHeartbeat(db, hub, live)

	handlers.SetupScoringRoutes(app, inningsService, overService, ballService, snapshotService)
	handlers.SetupLiveRoutes(app, hub, matchClient)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Scorecard archiver running (every 30s)")
	log.Println("✅ Snapshot heartbeat running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
