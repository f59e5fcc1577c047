/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the business-operations report server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), apply flag overrides
  2. Initialize SQLite store (run log, OAuth tokens)
  3. Build feeds and the configuration workbook source
  4. Create report runner, mailer and API handler
  5. Configure HTTP router, start the optional report scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides HTTP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database
  -env     .env file to load (default: .env)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Workbook feeds under ./feeds, config in ./config.xlsx
  ./server

  # HTTP accounting feed with OAuth refresh
  ACCOUNTING_FEED_KIND=http ACCOUNTING_FEED_URL=https://... ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - report/runner.go: Report orchestration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/bizops-engine/api"
	"github.com/warp/bizops-engine/auth"
	"github.com/warp/bizops-engine/config"
	"github.com/warp/bizops-engine/export"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/report"
	"github.com/warp/bizops-engine/sources"
	"github.com/warp/bizops-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides HTTP_PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	envFile := flag.String("env", ".env", "Environment file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	for _, line := range cfg.Summary() {
		log.Printf("[Config] %s", line)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Feeds
	var tokens generic.TokenStore = store
	if cfg.OAuth.Store == "file" {
		tokens = auth.NewFileTokenStore(cfg.OAuth.File)
	}
	timeFeed := buildTimeFeed(cfg.TimeFeed)
	accounting := buildAccountingFeed(cfg.AccountingFeed, cfg.OAuth, tokens)

	runner := report.NewRunner(timeFeed, accounting, sources.NewWorkbookConfig(cfg.ConfigWorkbook), store)
	runner.AggregateOtherCategories = cfg.AggregateOtherCategories

	var mailer *export.Mailer
	if cfg.SMTP.Host != "" {
		mailer = export.NewMailer(cfg.SMTP)
	}

	handler := api.NewHandler(runner, store, mailer)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	scheduler := api.NewReportScheduler(handler, cfg.Schedule.Recipients)
	scheduler.Enabled = cfg.Schedule.Enabled
	scheduler.Interval = cfg.Schedule.Interval
	scheduler.Reports = cfg.Schedule.Reports
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // report runs fetch whole years
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func buildTimeFeed(fc config.FeedConfig) sources.TimeBillingFeed {
	if fc.Kind == config.FeedHTTP {
		var tokens sources.TokenSource
		if fc.Token != "" {
			tokens = sources.StaticToken{Credential: "TIME_FEED_TOKEN", Value: fc.Token}
		}
		return sources.NewHTTPFeed(fc.Name, fc.URL, tokens)
	}
	return &sources.WorkbookFeed{FeedName: fc.Name, Dir: fc.Dir, Prefix: fc.Prefix}
}

func buildAccountingFeed(fc config.FeedConfig, oauth config.OAuthConfig, store generic.TokenStore) sources.AccountingFeed {
	if fc.Kind == config.FeedHTTP {
		rotator := auth.NewRotator(fc.Name, oauth.TokenURL, oauth.ClientID, oauth.ClientSecret, oauth.RefreshToken, store)
		return sources.NewHTTPFeed(fc.Name, fc.URL, rotator)
	}
	return &sources.WorkbookFeed{FeedName: fc.Name, Dir: fc.Dir, Prefix: fc.Prefix}
}
