package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/webboard/webboard-api/internal/config"
	"github.com/webboard/webboard-api/internal/database"
	"github.com/webboard/webboard-api/internal/giststore"
	"github.com/webboard/webboard-api/internal/handlers"
	"github.com/webboard/webboard-api/internal/logger"
	"github.com/webboard/webboard-api/internal/middleware"
	"github.com/webboard/webboard-api/internal/services/google"
	"github.com/webboard/webboard-api/internal/services/session"
	"github.com/webboard/webboard-api/internal/storage"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("storage_backend", cfg.StorageBackend),
	)

	// Select the drawing store. Missing backend configuration is not fatal:
	// the unconfigured placeholder reports it as a 500 on each request, same
	// as a missing JWT_SECRET.
	var store storage.DrawingStore = storage.Unconfigured{}
	var db *database.DB

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			zapLogger.Warn("database_url_not_configured")
			break
		}
		db, err = database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		if err := db.EnsureSchema(context.Background()); err != nil {
			zapLogger.Fatal("failed_to_ensure_schema", zap.Error(err))
		}
		store = database.NewDrawingRepository(db)
		zapLogger.Info("connected_to_database")
	case config.BackendGist:
		// Degraded backend: ownership is a description tag match and listing
		// is a linear scan. See internal/giststore.
		if cfg.GitHubToken == "" {
			zapLogger.Warn("github_token_not_configured")
			break
		}
		store = giststore.New(cfg.GitHubToken)
		zapLogger.Warn("using_gist_storage_backend_ownership_checks_are_approximate")
	}

	if cfg.JWTSecret == "" {
		zapLogger.Warn("jwt_secret_not_configured_protected_routes_will_fail")
	}
	if cfg.GoogleClientID == "" {
		zapLogger.Warn("google_client_id_not_configured_login_will_fail")
	}

	// Services
	jwksManager := google.NewJWKSManager()
	verifier := google.NewVerifier(jwksManager, cfg.GoogleClientID)
	codec := session.NewCodec(cfg.JWTSecret)

	// Handlers
	authHandler := handlers.NewAuthHandler(verifier, codec, zapLogger)
	drawingHandler := handlers.NewDrawingHandler(store, zapLogger)
	healthChecker := handlers.NewHealthChecker(db)

	loginRateLimit, err := middleware.LoginRateLimit(cfg.RedisURL, cfg.LoginRateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_login_rate_limiter", zap.Error(err))
	}

	// Router
	r := mux.NewRouter()

	// Middleware executes in registration order (outermost first)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes
	r.HandleFunc("/health", healthChecker.HealthCheck).Methods("GET")

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()

	loginRouter := authRouter.NewRoute().Subrouter()
	loginRouter.Use(loginRateLimit)
	authHandler.RegisterRoutes(loginRouter)

	protectedAuthRouter := authRouter.NewRoute().Subrouter()
	protectedAuthRouter.Use(middleware.Auth(codec, zapLogger))
	protectedAuthRouter.HandleFunc("/verify", authHandler.Verify).Methods("GET")

	// Drawing routes (protected)
	drawingsRouter := r.PathPrefix("/drawings").Subrouter()
	drawingsRouter.Use(middleware.Auth(codec, zapLogger))
	drawingHandler.RegisterRoutes(drawingsRouter)

	// Catch-all OPTIONS handler for preflight requests. Without a matching
	// route, mux skips its middleware chain and the CORS headers are never
	// set; with it, the CORS middleware answers the preflight itself and this
	// handler only sees plain OPTIONS requests.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Unsupported verbs on known paths get a structured 405
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"Method not allowed"}`))
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
