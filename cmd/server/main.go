/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the sector competition parameter server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (.env supported), parse flags
  2. Initialize SQLite store
  3. Optionally seed reference and demo data
  4. Wire domain services and the API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr    Listen address (default from ADDR env, :8080)
  -db      SQLite database path (default from DB_PATH env)
           Use ":memory:" for an in-memory database
  -seed    Seed sectors, criteria, periods and demo measurements

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and demo data
  ./server -db="./data/premiacao.db" -seed

  # Run with in-memory database
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/Felipe2077/premiacaovpio-sub002/api"
	"github.com/Felipe2077/premiacaovpio-sub002/competition"
	"github.com/Felipe2077/premiacaovpio-sub002/config"
	"github.com/Felipe2077/premiacaovpio-sub002/expurgo"
	"github.com/Felipe2077/premiacaovpio-sub002/history"
	"github.com/Felipe2077/premiacaovpio-sub002/parameter"
	"github.com/Felipe2077/premiacaovpio-sub002/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override the environment.
	addr := flag.String("addr", cfg.Addr, "listen address")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	seed := flag.Bool("seed", cfg.Seed, "seed reference and demo data")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seed {
		if err := sqlite.Seed(context.Background(), store); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
		log.Println("Database seeded")
	}

	// Wire domain services
	audit := store.Audit()
	resolver := competition.NewResolver(store)
	params := parameter.NewService(store.Parameters(), store, resolver, audit)
	expurgos := expurgo.NewService(store.Expurgos(), store, audit, nil)
	reconstructor := history.NewReconstructor(store.Parameters(), store, store,
		history.ExpurgoAdjustments{Store: store.Expurgos()})

	handler := api.NewHandler(params, expurgos, reconstructor, store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
