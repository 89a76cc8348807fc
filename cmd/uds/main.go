// Command uds runs the User Discovery Service: users, search_users,
// user_by_uid, create_user, add_pub_key, profile, and user/<uid>, plus
// /healthz and /metrics.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jaem-project/jaem-server/config"
	"github.com/jaem-project/jaem-server/internal/health"
	"github.com/jaem-project/jaem-server/internal/httpmw"
	"github.com/jaem-project/jaem-server/internal/logger"
	"github.com/jaem-project/jaem-server/internal/metrics"
	"github.com/jaem-project/jaem-server/uds/httpapi"
	"github.com/jaem-project/jaem-server/uds/userstore"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "uds",
	Short: "jaem-server User Discovery Service",
	RunE:  run,
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&configPath, "config", "./uds.toml", "path to the TOML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	udsCfg := cfg.UserDiscovery

	log := logger.ForComponent("uds")
	log.Info("starting user discovery service", logger.Uint64("port", uint64(udsCfg.Port)))

	pictureRoot := filepath.Join(filepath.Dir(udsCfg.StoragePath), "pictures")
	store, err := userstore.New(udsCfg.StoragePath, pictureRoot)
	if err != nil {
		return fmt.Errorf("opening user store: %w", err)
	}

	router := httpapi.New(store, log)

	checker := health.NewChecker()
	checker.Register("picture_storage", health.DirReachable(pictureRoot))
	checker.Register("users_file_directory", health.DirReachable(filepath.Dir(udsCfg.StoragePath)))

	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Handler(checker))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpmw.Recover(log, router))

	addr := fmt.Sprintf(":%d", udsCfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("user discovery service listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	log.Info("user discovery service stopped")
	return nil
}
