package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/api/middleware"
	"github.com/cloo-solutions/ragchat/internal/jobs"
	"github.com/cloo-solutions/ragchat/internal/server"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Prepare the document index if needed, then serve the chat API",
	}
	MakeServe(cmd)
	return cmd
}

// MakeServe turns cmd into a serve command. The daemon root uses it so that
// running without a subcommand starts the server.
func MakeServe(cmd *cobra.Command) {
	cmd.RunE = runServe
	addServerFlags(cmd.Flags())
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := setupApp(ctx, cmd, !noMigrate)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	slog.Info("application startup sequence initiated")
	result, err := a.initializer.Run(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	slog.Info("vector store ready", "collection", result.Collection, "records", result.Records, "skipped", result.Skipped)

	coll, err := a.store.GetOrCreateCollection(ctx, cfg.Processing.Collection)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	engine := service.NewEngine(service.NewRetriever(a.store, coll), a.model, a.prompts, a.history(), cfg.Processing.TopK)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimitWindow())
	sweeper := jobs.NewWorker("rate-limit-sweeper", limiter, cfg.RateLimitSweepInterval())
	go sweeper.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler: handlers.NewChatHandler(engine),
		RateLimiter: limiter,
		TrustProxy:  cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "workers", a.workers.Size())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			sweeper.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("application shutdown sequence initiated")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited")
	return nil
}
