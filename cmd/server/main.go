package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pocketledger/backend/internal/audit"
	"github.com/pocketledger/backend/internal/database"
	"github.com/pocketledger/backend/internal/handlers"
	"github.com/pocketledger/backend/internal/metrics"
	mW "github.com/pocketledger/backend/internal/middleware"
	"github.com/pocketledger/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Pocketledger API
// @version 1.0
// @description Personal-finance ledger: accounts, transfers and spending analytics
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize storage
	db := database.InitDatabase()
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	collector := metrics.NewCollector()
	auditLogger := audit.NewLogger()

	accountService := services.NewAccountService(db)
	transferService := services.NewTransferService(db, auditLogger, collector)
	analyticsService := services.NewAnalyticsService(db, redisClient)

	accountHandler := handlers.NewAccountHandler(accountService)
	transferHandler := handlers.NewTransferHandler(transferService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Prometheus metrics
	r.Handle("/metrics", collector.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/accounts", accountHandler.CreateAccount)
			r.Get("/accounts", accountHandler.ListAccounts)
			r.Get("/accounts/{accountId}", accountHandler.GetAccount)
			r.Put("/accounts/{accountId}", accountHandler.UpdateAccount)
			r.Delete("/accounts/{accountId}", accountHandler.DeleteAccount)
			r.Get("/accounts/{accountId}/transactions", accountHandler.ListAccountTransactions)

			r.Post("/accounts/{accountId}/deposit", transferHandler.Deposit)
			r.Post("/accounts/{accountId}/withdraw", transferHandler.Withdraw)
			r.Post("/transfers", transferHandler.Transfer)

			r.Get("/transactions/recent", accountHandler.RecentTransactions)

			r.Get("/analytics/spending-by-category", analyticsHandler.SpendingByCategory)
			r.Get("/analytics/income-by-category", analyticsHandler.IncomeByCategory)
			r.Get("/analytics/spending-by-month", analyticsHandler.SpendingByMonth)
			r.Get("/analytics/monthly-spending", analyticsHandler.MonthlySpendingByYear)
			r.Get("/analytics/transaction-count", analyticsHandler.TransactionCount)
			r.Get("/analytics/total-spending", analyticsHandler.TotalSpending)
			r.Get("/analytics/average-transaction", analyticsHandler.AverageTransactionAmount)
			r.Get("/analytics/top-categories", analyticsHandler.TopCategories)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
