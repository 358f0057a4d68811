package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"file-relay/internal/db"
	"file-relay/internal/server"
)

func main() {
	addr := getenvDefault("RELAY_ADDR", ":8080")
	owner := getenvDefault("RELAY_OWNER", "Mr. Hans / Hans Tech")

	// Database
	dsn := getenvDefault("DATABASE_URL", "")
	dbConn, err := server.OpenDB(dsn)
	if err != nil {
		log.Printf("service=relay msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	// Run migrations
	log.Printf("service=relay msg=%q", "running_migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=relay msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}
	log.Printf("service=relay msg=%q", "migrations_complete")

	// Blob store
	blobs, err := server.NewMinioStore(
		os.Getenv("RELAY_S3_ENDPOINT"),
		os.Getenv("RELAY_S3_ACCESS_KEY"),
		os.Getenv("RELAY_S3_SECRET_KEY"),
		os.Getenv("RELAY_BUCKET"),
	)
	if err != nil {
		log.Printf("service=relay msg=%q err=%v", "blob_store_init_failed", err)
		os.Exit(1)
	}

	meta := server.NewPostgresStore(dbConn)

	maxUpload, err := parseMaxUploadBytes()
	if err != nil {
		log.Printf("service=relay msg=%q err=%v", "bad_max_upload_bytes", err)
		os.Exit(1)
	}

	sweepCfg := server.LoadSweepConfigFromEnv(meta, blobs)

	srv := server.New(server.Config{
		Addr:           addr,
		Owner:          owner,
		PublicDir:      getenvDefault("RELAY_PUBLIC_DIR", "public"),
		MaxUploadBytes: maxUpload,
		RetentionDays:  int(sweepCfg.Retention / (24 * time.Hour)),
		Meta:           meta,
		Blobs:          blobs,
	})

	// The sweeper shares a cancellation context with process shutdown so a
	// SIGTERM stops both the listener and the background schedule.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go server.StartSweeper(sweepCtx, sweepCfg)

	// Start the HTTP server in a background goroutine so we can listen for
	// OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=relay msg=%q addr=%s", "starting", addr)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=relay msg=%q signal=%s", "shutting_down", sig.String())
		stopSweeper()
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=relay msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=relay msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=relay msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// parseMaxUploadBytes reads RELAY_MAX_UPLOAD_BYTES. 0 (or unset) means no
// request body limit.
func parseMaxUploadBytes() (int64, error) {
	raw := os.Getenv("RELAY_MAX_UPLOAD_BYTES")
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// getenvDefault reads an environment variable and returns a default value
// if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
