package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeMonkAPI/handlers"
	"tradeMonkAPI/internal/notification"
	"tradeMonkAPI/internal/store"
	"tradeMonkAPI/middleware"
	"tradeMonkAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool              *pgxpool.Pool
	challengeStore      *store.ChallengeStore
	tradeService        *services.TradeService
	challengeService    *services.ChallengeService
	notificationService *services.NotificationService
	fcmService          *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	challengeStore, err = store.NewChallengeStore(ctx, "./serviceAccountKey.json")
	if err != nil {
		log.Fatal("Failed to initialize challenge store:", err)
	}

	tradeService = services.NewTradeService(dbPool)
	notificationService = services.NewNotificationService(dbPool)

	autoComplete := os.Getenv("CHALLENGE_AUTO_COMPLETE") != "false"
	challengeService = services.NewChallengeService(challengeStore, tradeService, services.ChallengeServiceConfig{
		AutoComplete: autoComplete,
	})
	challengeService.SetNotifier(notificationService)

	fcmService, err = notification.NewFCMService(ctx, "./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		notificationService.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
		if err := challengeStore.Close(); err != nil {
			log.Printf("Failed to close challenge store: %v", err)
		}
	}()

	challengeHandler := handlers.NewChallengeHandler(challengeService)
	tradeHandler := handlers.NewTradeHandler(tradeService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "tradeMonk-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/challenge-templates", challengeHandler.GetTemplates).Methods("GET")

	api.HandleFunc("/users/{userID}/subscribe", challengeHandler.Subscribe).Methods("POST")
	api.HandleFunc("/users/{userID}/unsubscribe", challengeHandler.Unsubscribe).Methods("POST")

	api.HandleFunc("/users/{userID}/challenges", challengeHandler.StartChallenge).Methods("POST")
	api.HandleFunc("/users/{userID}/challenges", challengeHandler.GetChallengeHistory).Methods("GET")
	api.HandleFunc("/users/{userID}/challenges/active", challengeHandler.GetActiveChallenge).Methods("GET")
	api.HandleFunc("/users/{userID}/challenges/active", challengeHandler.AbortChallenge).Methods("DELETE")
	api.HandleFunc("/users/{userID}/challenges/active/tasks/toggle", challengeHandler.ToggleTask).Methods("POST")
	api.HandleFunc("/users/{userID}/challenges/active/tribunal", challengeHandler.RunTribunal).Methods("POST")
	api.HandleFunc("/users/{userID}/challenges/active/acknowledge", challengeHandler.AcknowledgeCompletion).Methods("POST")
	api.HandleFunc("/users/{userID}/challenges/active/stats", challengeHandler.GetChallengeStats).Methods("GET")

	api.HandleFunc("/users/{userID}/trades", tradeHandler.CreateTrade).Methods("POST")
	api.HandleFunc("/users/{userID}/trades", tradeHandler.ListTrades).Methods("GET")
	api.HandleFunc("/users/{userID}/trades/{tradeID}", tradeHandler.UpdateTrade).Methods("PUT")
	api.HandleFunc("/users/{userID}/trades/{tradeID}", tradeHandler.DeleteTrade).Methods("DELETE")
	api.HandleFunc("/users/{userID}/analytics", tradeHandler.GetAnalytics).Methods("GET")

	api.HandleFunc("/users/{userID}/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
