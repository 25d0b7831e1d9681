package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/platewise/platewise-backend/internal/clients/redis"
	"github.com/platewise/platewise-backend/internal/connectors"
	"github.com/platewise/platewise-backend/internal/db"
	"github.com/platewise/platewise-backend/internal/fetch"
	"github.com/platewise/platewise-backend/internal/handlers"
	"github.com/platewise/platewise-backend/internal/jobs"
	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/observability"
	"github.com/platewise/platewise-backend/internal/repos"
	"github.com/platewise/platewise-backend/internal/secrets"
	"github.com/platewise/platewise-backend/internal/server"
	"github.com/platewise/platewise-backend/internal/services"
	"github.com/platewise/platewise-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	fetchConcurrency := utils.GetEnvAsInt("FETCH_MAX_CONCURRENCY", 4, log)
	fetchTimeoutSec := utils.GetEnvAsInt("FETCH_TIMEOUT_SECONDS", 20, log)
	fetchTTLMin := utils.GetEnvAsInt("FETCH_CACHE_TTL_MINUTES", 360, log)
	syncIntervalMin := utils.GetEnvAsInt("SYNC_INTERVAL_MINUTES", 0, log)
	queueCapacity := utils.GetEnvAsInt("SYNC_QUEUE_CAPACITY", 32, log)
	importMaxBytes := utils.GetEnvAsInt64("IMPORT_MAX_BYTES", 2<<20, log)
	credentialKey := utils.GetEnv("CREDENTIAL_KEY", "", log)
	allowedOrigins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log)

	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "platewise-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	restaurantRepo := repos.NewRestaurantRepo(thePG, log)
	providerRefRepo := repos.NewProviderRefRepo(thePG, log)
	menuRepo := repos.NewMenuRepo(thePG, log)
	dietTagRepo := repos.NewDietTagRepo(thePG, log)
	dietInferenceRepo := repos.NewDietInferenceRepo(thePG, log)
	dietOverrideRepo := repos.NewDietOverrideRepo(thePG, log)
	fetchCacheRepo := repos.NewFetchCacheRepo(thePG, log)
	syncJobRepo := repos.NewSyncJobRepo(thePG, log)
	syncAlertRepo := repos.NewSyncAlertRepo(thePG, log)
	credentialRepo := repos.NewCredentialRepo(thePG, log)

	// Credentials
	var credentialService services.CredentialService
	if credentialKey != "" {
		box, err := secrets.NewBox(credentialKey)
		if err != nil {
			log.Fatal("Credential box init failed", "error", err)
		}
		credentialService = services.NewCredentialService(credentialRepo, box, log)
	} else {
		log.Warn("CREDENTIAL_KEY not set, provider credential storage disabled")
	}

	// Fetch layer
	log.Info("Setting up fetch gate and cache from main...")
	hotCache, err := redis.NewHotCache(log)
	if err != nil {
		log.Warn("Redis hot cache unavailable, continuing without it", "error", err)
	}
	gate := fetch.NewGate(fetchConcurrency, time.Duration(fetchTimeoutSec)*time.Second, log)
	fetchTTL := time.Duration(fetchTTLMin) * time.Minute
	fetchCache := fetch.NewCache(gate, fetchCacheRepo, hotCache, credentialService, fetchTTL, time.Duration(fetchTimeoutSec)*time.Second, log)

	// Connectors
	registry := connectors.NewRegistry()
	registry.Register(connectors.NewWoltConnector(fetchCache, fetchTTL, log))
	registry.Register(connectors.NewLieferandoConnector(fetchCache, fetchTTL, log))
	log.Info("Registered provider connectors", "providers", registry.Keys())

	// Services
	log.Info("Setting up Services from main...")
	upsertService := services.NewUpsertService(restaurantRepo, providerRefRepo, menuRepo, log)
	dietService := services.NewDietService(dietTagRepo, dietInferenceRepo, dietOverrideRepo, menuRepo, log)
	if err := dietService.SeedDefaultTags(ctx); err != nil {
		log.Fatal("Diet tag seeding failed", "error", err)
	}
	alertService := services.NewAlertService(syncAlertRepo, dietOverrideRepo, dietInferenceRepo, log)
	syncService := services.NewSyncService(
		registry,
		fetchCache,
		upsertService,
		dietService,
		alertService,
		restaurantRepo,
		providerRefRepo,
		menuRepo,
		fetchTTL,
		importMaxBytes,
		log,
	)

	// Jobs
	log.Info("Setting up sync queue and scheduler from main...")
	queue := jobs.NewQueue(syncJobRepo, syncService, queueCapacity, log)
	queue.Start(ctx)
	defer queue.Stop()
	scheduler := jobs.NewScheduler(queue, time.Duration(syncIntervalMin)*time.Minute, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Handlers
	log.Info("Setting up handlers from main...")
	syncHandler := handlers.NewSyncHandler(queue, syncJobRepo)
	alertsHandler := handlers.NewAlertsHandler(alertService)
	restaurantsHandler := handlers.NewRestaurantsHandler(restaurantRepo, dietService)
	dietHandler := handlers.NewDietHandler(dietService, dietTagRepo)
	credentialsHandler := handlers.NewCredentialsHandler(credentialService)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		DB:                 thePG,
		Log:                log,
		SyncHandler:        syncHandler,
		AlertsHandler:      alertsHandler,
		RestaurantsHandler: restaurantsHandler,
		DietHandler:        dietHandler,
		CredentialsHandler: credentialsHandler,
		AllowedOrigins:     origins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
