package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/config"
	"creatorhub-api/internal/events"
	"creatorhub-api/internal/funcs"
	"creatorhub-api/internal/handler"
	"creatorhub-api/internal/middleware"
	"creatorhub-api/internal/repository"
	"creatorhub-api/internal/router"
	"creatorhub-api/internal/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting CreatorHub API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Open the SQLite store for the collection repositories
	db, err := repository.OpenSQLite(cfg.StoreDB.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()
	log.Println("SQLite store initialized")

	// Initialize profile repository based on config
	var profileRepo repository.ProfileRepository
	switch cfg.StoreDB.Type {
	case "mysql":
		mysqlDB, err := sql.Open("mysql", cfg.StoreDB.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		mysqlDB.SetMaxOpenConns(10)
		mysqlDB.SetMaxIdleConns(5)
		mysqlDB.SetConnMaxLifetime(5 * time.Minute)

		mysqlRepo, err := repository.NewMySQLProfileRepository(mysqlDB)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL profile repository: %v", err)
		}
		defer mysqlRepo.Close()
		profileRepo = mysqlRepo
		log.Println("MySQL profile repository initialized")
	default: // sqlite
		profileRepo = repository.NewSQLiteProfileRepository(db)
		log.Println("SQLite profile repository initialized")
	}

	unlockRepo := repository.NewSQLiteUnlockRepository(db)
	mediaRepo := repository.NewSQLiteMediaRepository(db)
	wishlistRepo := repository.NewSQLiteWishlistRepository(db)
	notifRepo := repository.NewSQLiteNotificationRepository(db)
	saleRepo := repository.NewSQLiteSaleRepository(db)
	blockRepo := repository.NewSQLiteBlockRepository(db)
	settingsRepo := repository.NewSQLiteSettingsRepository(db)

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddress(),
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed: %v", err)
		redisClient = nil
	} else {
		log.Println("Redis client initialized")
	}
	cancel()

	// Sessions, presence and queues: Redis when available, otherwise an
	// in-process store (single-instance deployments and local dev).
	storeCfg := cache.RedisStoreConfig{
		GuestTTL:        cfg.Guest.TTL,
		StartingCredits: cfg.Guest.StartingCredits,
		PresenceTTL:     cfg.Rooms.PresenceTTL,
	}

	var (
		guestStore    cache.GuestStore
		presenceStore cache.PresenceStore
		queueStore    cache.QueueStore
		checkCache    func() error
	)
	if redisClient != nil {
		redisStore := cache.NewRedisStore(redisClient, storeCfg)
		guestStore = redisStore
		presenceStore = redisStore
		queueStore = redisStore
		checkCache = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisStore.Ping(ctx)
		}
	} else {
		log.Println("Warning: falling back to in-memory session store")
		memStore := cache.NewMemoryStore(storeCfg)
		guestStore = memStore
		presenceStore = memStore
		queueStore = memStore
	}

	var tokenService *service.TokenService
	if redisClient != nil {
		tokenService = service.NewTokenService(redisClient)
	}

	// Initialize services
	bus := events.NewBus()
	defer bus.Close()

	ledger := service.NewLedger(profileRepo, guestStore, notifRepo, bus)

	isolation := service.NewIsolationRegistry(bus)
	isolation.Register(ledger)
	isolation.Register(service.GuestSessionScope{Guests: guestStore})

	mergeService := service.NewMergeService(guestStore, wishlistRepo, notifRepo, ledger, isolation)
	entitlementService := service.NewEntitlementService(mediaRepo, unlockRepo, saleRepo, ledger, bus)
	roomService := service.NewRoomService(presenceStore, queueStore, settingsRepo, cfg.Rooms.DefaultWaitMinutes)

	funcsClient := funcs.New(cfg.Functions.BaseURL, cfg.Functions.ServiceKey, cfg.Functions.Timeout)
	if !funcsClient.Configured() {
		log.Println("Warning: settlement functions endpoint not configured; payment routes will answer 503")
	}

	// Initialize handlers
	checkStore := func() error { return db.Ping() }
	healthHandler := handler.New(checkStore, checkCache)
	creditsHandler := handler.NewCreditsHandler(ledger)
	mediaHandler := handler.NewMediaHandler(mediaRepo, entitlementService)
	wishlistHandler := handler.NewWishlistHandler(wishlistRepo, guestStore)
	notificationsHandler := handler.NewNotificationsHandler(notifRepo, guestStore)
	roomsHandler := handler.NewRoomsHandler(roomService)
	settingsHandler := handler.NewSettingsHandler(settingsRepo, blockRepo, cfg.Rooms.DefaultWaitMinutes)
	paymentsHandler := handler.NewPaymentsHandler(funcsClient, ledger)

	var authHandler *handler.AuthHandler
	if tokenService != nil {
		authHandler = handler.NewAuthHandler(tokenService, profileRepo, guestStore, mergeService, isolation)
	} else {
		log.Println("Warning: Redis unavailable, account auth routes disabled")
	}

	identityMiddleware := middleware.NewIdentityMiddleware(middleware.IdentityConfig{
		TokenService: tokenService,
		Guests:       guestStore,
	})

	// Create router
	r := router.New(router.Config{
		Handler:              healthHandler,
		AuthHandler:          authHandler,
		CreditsHandler:       creditsHandler,
		MediaHandler:         mediaHandler,
		WishlistHandler:      wishlistHandler,
		NotificationsHandler: notificationsHandler,
		RoomsHandler:         roomsHandler,
		SettingsHandler:      settingsHandler,
		PaymentsHandler:      paymentsHandler,
		IdentityMiddleware:   identityMiddleware,
	})

	// Start the expired-block sweeper
	cleanup := service.NewCleanupScheduler(blockRepo, service.DefaultCleanupConfig())
	cleanup.Start()
	defer cleanup.Stop()

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
