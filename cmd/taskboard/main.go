package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"taskboard/internal/auth"
	"taskboard/internal/server"
	"taskboard/internal/service"
	"taskboard/internal/storage/sqlite"
	"taskboard/internal/util"
)

var (
	dbPath string
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Task board collaboration backend",
	Long:  `Serves the task board HTTP API: accounts, boards with members, tasks with assignees and reviewers, and task comments.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.Open(dbPath, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer store.Close()
		logger.Info("database ready", slog.String("path", dbPath))
		return nil
	},
}

var useraddCmd = &cobra.Command{
	Use:   "useradd <email> <fullname>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(2),
	RunE:  runUseradd,
}

var (
	addr        string
	staticDir   string
	tokenSecret string
	tokenTTL    time.Duration
	password    string
)

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", util.EnvOrDefault("TASKBOARD_DB_PATH", "data/taskboard.db"), "Path to sqlite database file")

	serveCmd.Flags().StringVar(&addr, "addr", util.EnvOrDefault("TASKBOARD_ADDR", ":8080"), "HTTP listen address")
	serveCmd.Flags().StringVar(&staticDir, "static", util.EnvOrDefault("TASKBOARD_STATIC_DIR", ""), "Directory with built frontend")
	serveCmd.Flags().StringVar(&tokenSecret, "token-secret", util.EnvOrDefault("TASKBOARD_TOKEN_SECRET", ""), "HMAC secret for bearer tokens")
	serveCmd.Flags().DurationVar(&tokenTTL, "token-ttl", defaultTTL(), "Bearer token lifetime")

	useraddCmd.Flags().StringVar(&password, "password", util.EnvOrDefault("TASKBOARD_USER_PASSWORD", ""), "Password for the new account")

	rootCmd.AddCommand(serveCmd, migrateCmd, useraddCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func defaultTTL() time.Duration {
	raw := util.EnvOrDefault("TASKBOARD_TOKEN_TTL", "72h")
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("invalid TASKBOARD_TOKEN_TTL, using 72h", slog.String("value", raw))
		return 72 * time.Hour
	}
	return ttl
}

func runServe(cmd *cobra.Command, args []string) error {
	secret := []byte(tokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate token secret: %w", err)
		}
		logger.Warn("no token secret configured; tokens will not survive a restart")
	}
	tokens, err := auth.NewTokens(secret, tokenTTL)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(service.New(store, logger), tokens, logger, staticDir)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}

func runUseradd(cmd *cobra.Command, args []string) error {
	if password == "" {
		return errors.New("--password or TASKBOARD_USER_PASSWORD is required")
	}

	store, err := sqlite.Open(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	user, err := service.New(store, logger).Register(cmd.Context(), service.Registration{
		Email:            args[0],
		FullName:         args[1],
		Password:         password,
		RepeatedPassword: password,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %d <%s>\n", user.ID, user.Email)
	return nil
}
