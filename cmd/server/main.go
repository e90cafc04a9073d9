package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inktime/server/internal/config"
	"github.com/inktime/server/internal/handlers"
	custommw "github.com/inktime/server/internal/middleware"
	"github.com/inktime/server/internal/observability"
	"github.com/inktime/server/internal/repository"
	"github.com/inktime/server/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize telemetry
	telemetryCtx := context.Background()
	telemetry, err := observability.Initialize(telemetryCtx, observability.NewConfig("inktime-server", serviceVersion))
	if err != nil {
		log.Printf("Warning: telemetry initialization failed: %v", err)
	}

	// Initialize database and repositories
	var photoRepo repository.PhotoRepo
	var selectionRepo repository.SelectionRepo
	if cfg.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err := repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		defer db.Close()
		traced, err := observability.NewTraceDB(db)
		if err != nil {
			log.Fatalf("Failed to initialize database tracing: %v", err)
		}
		photoRepo = repository.NewPhotoRepositoryPostgres(traced)
		selectionRepo = repository.NewSelectionRepositoryPostgres(traced)
	} else {
		log.Println("Using SQLite database")
		db, err := repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
		defer db.Close()
		traced, err := observability.NewTraceDB(db)
		if err != nil {
			log.Fatalf("Failed to initialize database tracing: %v", err)
		}
		photoRepo = repository.NewPhotoRepository(traced)
		selectionRepo = repository.NewSelectionRepository(traced)
	}

	// Initialize services
	exifService := services.NewEXIFService()
	thumbnailService := services.NewThumbnailService(cfg.Overlay.ThumbnailMaxDim, cfg.Overlay.ThumbnailJPEGQ)
	fontResolver := services.NewFontResolver(services.NewSystemFontProvider())
	layoutService := services.NewLayoutService()
	renderCfg := services.DefaultRenderConfig()
	renderCfg.FontHint = cfg.Overlay.FontPath
	compositor := services.NewCompositor(renderCfg.InsetX, renderCfg.InsetY)
	renderService := services.NewRenderService(
		fontResolver,
		layoutService,
		compositor,
		exifService,
		renderCfg,
		cfg.Library.Dir,
	)
	renderMetrics, metricsErr := observability.NewRenderMetrics()
	if metricsErr != nil {
		log.Printf("Warning: render metrics unavailable: %v", metricsErr)
	} else {
		renderService.SetMetrics(renderMetrics)
	}

	selectorService := services.NewSelectorService(photoRepo, selectionRepo)
	if metricsErr == nil {
		selectorService.SetMetrics(renderMetrics)
	}
	scannerService := services.NewScannerService(photoRepo, exifService, cfg.Library.Dir, cfg.Scanner.IntervalHours)

	// WebSocket hub
	wsHub := services.NewWebSocketHub()
	go wsHub.Run()
	selectorService.SetWebSocketHub(wsHub)
	scannerService.SetWebSocketHub(wsHub)

	// Scan the library before serving so a fresh deployment has photos
	if cfg.Scanner.Enabled {
		if cfg.Scanner.ScanOnStart {
			scannerService.RunSync()
		}
		scannerService.Start()
	}

	// Initialize handlers
	todayHandler := handlers.NewTodayHandler(selectorService, photoRepo, renderService)
	reviewHandler := handlers.NewReviewHandler(photoRepo, thumbnailService, exifService, cfg.Library.Dir)
	simHandler := handlers.NewSimHandler(photoRepo, renderService)
	filesHandler := handlers.NewFilesHandler(cfg.Library.Dir)
	scannerHandler := handlers.NewScannerHandler(scannerService)
	healthHandler := handlers.NewHealthHandler()
	wsHandler := handlers.NewWebSocketHandler(wsHub)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware("inktime-server"))
	if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	} else {
		log.Printf("Warning: HTTP metrics unavailable: %v", err)
	}
	r.Use(custommw.AccessKeyAuth(cfg.Security.AccessKey, cfg.Security.AccessKeyHeader))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)

	r.Get("/today-image", todayHandler.TodayImage)

	r.Route("/api/review", func(r chi.Router) {
		r.Get("/", reviewHandler.List)
		r.Post("/{id}", reviewHandler.SetReview)
		r.Get("/{id}/thumb", reviewHandler.Thumbnail)
	})

	r.Route("/sim", func(r chi.Router) {
		r.Get("/", simHandler.List)
		r.Get("/render", simHandler.Render)
	})

	r.Route("/api/scan", func(r chi.Router) {
		r.Get("/status", scannerHandler.GetStatus)
		r.Post("/run", scannerHandler.RunNow)
	})

	r.Get("/files/*", filesHandler.Serve)
	r.Get("/ws", wsHandler.HandleConnection)

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Longer for full-size renders
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("InkTime server starting on %s", cfg.ServerAddress)
		log.Printf("Photo library: %s", cfg.Library.Dir)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scannerService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(ctx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}

	log.Println("Server stopped")
}
