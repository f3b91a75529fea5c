package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"samplecrate/cache"
	"samplecrate/config"
	"samplecrate/core/auth"
	"samplecrate/db"
	"samplecrate/logger"
	"samplecrate/repository"
	"samplecrate/storage"
	"samplecrate/watcher"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
	})
	auth.Init(cfg.JWTSecret)

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database", logger.ErrorField(err))
	}
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("auto migration failed", logger.ErrorField(err))
	}

	sampleRepo := repository.NewMySQLSampleRepository()
	userRepo := repository.NewMySQLUserRepository()
	dupRepo := repository.NewDuplicateRepository(sampleRepo)

	hub := NewWSHub()
	apiHandler := NewAPIHandler(sampleRepo, userRepo, dupRepo, hub, cfg)

	// A file event cannot be attributed to one user, so every cached
	// listing is dropped.
	libWatcher, err := watcher.Start(cfg.LibraryDir, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.InvalidateAllListings(ctx); err != nil {
			logger.Warn("listing invalidation failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		logger.Warn("library watcher disabled", logger.String("dir", cfg.LibraryDir), logger.ErrorField(err))
	} else {
		defer libWatcher.Close()
	}

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	// Auth endpoints
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// Sample library endpoints
	router.HandleFunc("/api/samples", apiHandler.AuthMiddleware(apiHandler.GetSamplesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/samples/{id}", apiHandler.AuthMiddleware(apiHandler.GetSampleHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/samples/{id}/favorite", apiHandler.AuthMiddleware(apiHandler.SetFavoriteHandler)).Methods(http.MethodPut)

	// Duplicate resolution endpoints
	router.HandleFunc("/api/duplicates/scan", apiHandler.AuthMiddleware(apiHandler.ScanDuplicatesHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/duplicates/decisions", apiHandler.AuthMiddleware(apiHandler.GetDecisionsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/duplicates/policy", apiHandler.AuthMiddleware(apiHandler.GetPolicyHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/duplicates/policy", apiHandler.AuthMiddleware(apiHandler.UpdatePolicyHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/duplicates/pairs/{pairId}/override", apiHandler.AuthMiddleware(apiHandler.SetOverrideHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/duplicates/pairs/{pairId}/override", apiHandler.AuthMiddleware(apiHandler.ClearOverrideHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/duplicates/scope", apiHandler.AuthMiddleware(apiHandler.SetScopeHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/duplicates/mode/enter", apiHandler.AuthMiddleware(apiHandler.EnterModeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/duplicates/mode/exit", apiHandler.AuthMiddleware(apiHandler.ExitModeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/duplicates/targets", apiHandler.AuthMiddleware(apiHandler.GetTargetsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/duplicates/selection", apiHandler.AuthMiddleware(apiHandler.SetSelectionHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/duplicates/delete", apiHandler.AuthMiddleware(apiHandler.DeleteDuplicatesHandler)).Methods(http.MethodPost)

	// Live summary push
	router.HandleFunc("/ws/duplicates", apiHandler.DuplicateSummaryWSHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}
