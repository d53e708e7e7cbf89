package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"studyquest-backend/handlers"
	"studyquest-backend/middleware"
	"studyquest-backend/models"
	"studyquest-backend/services"
	"studyquest-backend/utils"
	"studyquest-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // avatars only, keep it small
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
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// R2 is optional in dev — avatar uploads fall back to local disk
	if os.Getenv("CLOUDFLARE_ACCOUNT_ID") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
	} else {
		log.Println("⚠️  CLOUDFLARE_ACCOUNT_ID not set, avatars will be stored on local disk")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.UserProfile{},
		&models.XPEvent{},
		&models.StudentUser{},
		&models.Habit{},
		&models.HabitCompletion{},
		&models.Task{},
		&models.ScheduleBlock{},
		&models.BlockCompletion{},
		&models.FocusSession{},
		&models.AchievementProgress{},
		&models.ChallengeInstance{},
		&models.SweepBonus{},
		&models.WeeklyStats{},
		&models.StudyGroup{},
		&models.GroupMember{},
		&models.Reward{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	// All user-facing dates resolve against one service-wide timezone.
	// Per-user timezones live in StudentUser for clients that need them.
	tzName := os.Getenv("SERVICE_TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatal("invalid SERVICE_TIMEZONE:", err)
	}
	clock := services.NewSystemClock(loc)

	xpService := services.NewXPService(db, clock)
	achievementService := services.NewAchievementService(db, xpService)
	challengeService := services.NewChallengeService(db, xpService, clock)
	completionService := services.NewCompletionService(db, xpService, achievementService, challengeService, clock)
	groupService := services.NewGroupService(db, xpService)
	rewardService := services.NewRewardService(db)
	rolloverService := services.NewRolloverService(db, challengeService, groupService, xpService, clock)

	// --- CONFIGURE auth service details for user mirroring + SSE auth ---
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("STUDY_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("STUDY_SERVICE_TOKEN environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewProfileSyncWorker(db, authServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker.Start(ctx)

	rolloverService.StartRolloverScheduler()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupProgressRoutes(app, xpService, achievementService, completionService, rewardService, authClient)
	handlers.SetupHabitRoutes(app, completionService)
	handlers.SetupTaskRoutes(app, completionService)
	handlers.SetupChallengeRoutes(app, challengeService)
	handlers.SetupGroupRoutes(app, groupService)

	app.Static("/uploads", utils.UploadRoot())

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Rollover scheduler running (daily 00:10, weekly Mon 00:30)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
