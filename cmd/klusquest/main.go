package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AstroPony/KlusQuest/internal/auth"
	"github.com/AstroPony/KlusQuest/internal/database"
	"github.com/AstroPony/KlusQuest/internal/logging"
	"github.com/AstroPony/KlusQuest/internal/middleware"
	"github.com/AstroPony/KlusQuest/internal/server"
	"github.com/AstroPony/KlusQuest/internal/store"
)

func main() {
	logger := logging.Setup(os.Getenv("KLUSQUEST_LOG_LEVEL"))

	port := os.Getenv("KLUSQUEST_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("KLUSQUEST_DB_PATH")
	if dbPath == "" {
		dbPath = "klusquest.db"
	}

	policy, err := store.ParseCreditPolicy(os.Getenv("KLUSQUEST_CREDIT_POLICY"))
	if err != nil {
		log.Fatalf("invalid credit policy: %v", err)
	}

	validator, err := auth.ParseStaticTokens(os.Getenv("KLUSQUEST_API_TOKENS"))
	if err != nil {
		log.Fatalf("invalid api tokens: %v", err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	throttler := middleware.NewMemoryThrottler()
	srv := server.New(db, server.Config{
		Policy:    policy,
		Validator: validator,
		Throttler: throttler,
	}, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Drop expired throttle windows so the counter map stays bounded.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				throttler.Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	go func() {
		logger.Info("klusquest engine running", "port", port, "policy", string(policy))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	close(cleanupDone)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
