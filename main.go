package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/camden-git/photovaultbackend/config"
	"github.com/camden-git/photovaultbackend/database"
	"github.com/camden-git/photovaultbackend/embeddings"
	"github.com/camden-git/photovaultbackend/gdrive"
	"github.com/camden-git/photovaultbackend/handlers"
	"github.com/camden-git/photovaultbackend/importer"
	"github.com/camden-git/photovaultbackend/media"
	"github.com/camden-git/photovaultbackend/queue"
	"github.com/camden-git/photovaultbackend/repository"
	"github.com/camden-git/photovaultbackend/services"
	"github.com/camden-git/photovaultbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.MediaStoragePath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	// repositories
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	driveAuthRepo := repository.NewDriveAuthRepository(db)
	jobRepo := repository.NewImportJobRepository(db)
	fileRepo := repository.NewImportJobFileRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	// object storage and media transforms
	store, err := media.NewLocalObjectStore(cfg.MediaStoragePath, cfg.PublicBaseURL, cfg.URLSigningSecret)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	watermarker := media.NewWatermarker(cfg.WatermarkPath)

	// message queue
	importQueue, err := queue.NewRedisQueue(cfg.RedisURL, cfg.QueueName, cfg.QueueBatchSize, cfg.VisibilityTimeout)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize queue: %v", err)
	}
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := importQueue.Ping(pingCtx); err != nil {
		log.Fatalf("FATAL: Failed to reach Redis at %s: %v", cfg.RedisURL, err)
	}
	cancelPing()

	// external services
	tokenCipher, err := gdrive.NewTokenCipher(cfg.TokenCipherKey)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize token cipher: %v", err)
	}
	tokenBroker := gdrive.NewTokenBroker(driveAuthRepo, tokenCipher, cfg.DriveTokenURL, cfg.DriveClientID, cfg.DriveClientSecret)
	driveClient := gdrive.NewClient(cfg.DriveAPIBaseURL, tokenBroker)
	scorer := embeddings.NewClient(cfg.EmbeddingServiceURL)

	// import pipeline
	dispatcher := importer.NewDispatcher(jobRepo, fileRepo, importQueue, cfg.QueueBatchSize)
	discoverer := importer.NewDiscoverer(driveClient, jobRepo, dispatcher, cfg.DriveAPIDelay)
	reconciler := importer.NewReconciler(jobRepo, fileRepo)
	canceller := importer.NewCanceller(jobRepo, fileRepo, photoRepo)
	processor := importer.NewProcessor(jobRepo, fileRepo, photoRepo, userRepo,
		driveClient, store, watermarker, scorer, cfg.SignedURLTTL, cfg.MaxRetries)

	importService := services.NewImportService(jobRepo, fileRepo, roomRepo, discoverer, reconciler, canceller)
	faceSearchService := services.NewFaceSearchService(photoRepo, scorer)

	log.Printf("Initializing import worker pool (Workers: %d, Max retries: %d)...", cfg.NumImportWorkers, cfg.MaxRetries)
	workerPool := workers.NewImportWorkerPool(importQueue, processor,
		cfg.NumImportWorkers, cfg.HeartbeatInterval, cfg.VisibilityTimeout, cfg.ReclaimInterval)
	workerPool.Start()

	// handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	importHandler := handlers.NewImportHandler(importService)
	driveHandler := handlers.NewDriveHandler(driveClient, tokenBroker)
	searchHandler := handlers.NewSearchHandler(faceSearchService)
	mediaHandler := handlers.NewMediaHandler(store)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:5173")},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	authMiddleware := handlers.AuthMiddleware(userRepo, cfg.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Route("/imports", func(r chi.Router) {
				r.Post("/", importHandler.CreateImport)
				r.Get("/", importHandler.ListJobs)
				r.Route("/{job_id}", func(r chi.Router) {
					r.Get("/", importHandler.GetJob)
					r.Post("/cancel", importHandler.CancelJob)
				})
			})

			r.Route("/drive", func(r chi.Router) {
				r.Post("/connect", driveHandler.Connect)
				r.Get("/folders", driveHandler.ListFolders)
			})

			r.Get("/rooms", importHandler.ListRooms)
			r.Post("/search/faces", searchHandler.SearchFaces)
			r.Post("/uploads", mediaHandler.CreateUploadURL)
		})
	})

	r.Get("/media/*", mediaHandler.Serve)
	r.Head("/media/*", mediaHandler.Serve)
	r.Put("/media/*", mediaHandler.Upload)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	workerPool.Stop()
	log.Println("Shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
