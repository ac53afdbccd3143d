package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/homematch/homematch/internal/backup"
	"github.com/homematch/homematch/internal/database"
	"github.com/homematch/homematch/internal/email"
	"github.com/homematch/homematch/internal/logging"
	"github.com/homematch/homematch/internal/push"
	"github.com/homematch/homematch/internal/server"
)

func main() {
	// Missing .env is fine; real deployments set env directly.
	godotenv.Load()

	logger := logging.Setup(os.Getenv("HOMEMATCH_LOG_LEVEL"), os.Getenv("HOMEMATCH_LOG_FORMAT"))

	port := os.Getenv("HOMEMATCH_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("HOMEMATCH_DB_PATH")
	if dbPath == "" {
		dbPath = "homematch.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("HOMEMATCH_POSTMARK_TOKEN"),
		os.Getenv("HOMEMATCH_FROM_EMAIL"),
	)

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Bucket:    os.Getenv("HOMEMATCH_S3_BUCKET"),
			Region:    os.Getenv("HOMEMATCH_S3_REGION"),
			Endpoint:  os.Getenv("HOMEMATCH_S3_ENDPOINT"),
			AccessKey: os.Getenv("HOMEMATCH_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("HOMEMATCH_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("HOMEMATCH_BACKUP_PASSPHRASE"),
	}
	if v := os.Getenv("HOMEMATCH_BACKUP_INTERVAL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours < 1 {
			log.Fatalf("invalid HOMEMATCH_BACKUP_INTERVAL_HOURS: %q", v)
		}
		backupCfg.Interval = time.Duration(hours) * time.Hour
	}

	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("HOMEMATCH_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("HOMEMATCH_VAPID_PRIVATE_KEY"),
	}

	srv := server.New(db, emailClient, backupCfg, pushCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if srv.BackupManager().Enabled() {
		srv.BackupManager().Start(ctx)
		defer srv.BackupManager().Stop()
	}

	go cleanupLoop(ctx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("HomeMatch running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// cleanupLoop periodically purges expired sessions and invites and trims
// stale rate-limit entries.
func cleanupLoop(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("session cleanup", "error", err)
			} else if n > 0 {
				logger.Info("sessions purged", "count", n)
			}
			if n, err := srv.InviteStore().DeleteExpired(); err != nil {
				logger.Error("invite cleanup", "error", err)
			} else if n > 0 {
				logger.Info("invites purged", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}
