// Command mde runs the Message Delivery Engine: send_message, get_messages,
// delete_messages, share, and GET share/<slug>, plus /healthz and /metrics.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jaem-project/jaem-server/config"
	"github.com/jaem-project/jaem-server/internal/health"
	"github.com/jaem-project/jaem-server/internal/httpmw"
	"github.com/jaem-project/jaem-server/internal/janitor"
	"github.com/jaem-project/jaem-server/internal/logger"
	"github.com/jaem-project/jaem-server/internal/metrics"
	"github.com/jaem-project/jaem-server/mde/httpapi"
	"github.com/jaem-project/jaem-server/mde/mailbox"
	"github.com/jaem-project/jaem-server/mde/share"
	"github.com/jaem-project/jaem-server/mde/staging"
)

const sweepInterval = 5 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mde",
	Short: "jaem-server Message Delivery Engine",
	RunE:  run,
}

func main() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVar(&configPath, "config", "./mde.toml", "path to the TOML config file")

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
	mdeCfg := cfg.MessageDelivery

	log := logger.ForComponent("mde")
	log.Info("starting message delivery engine", logger.String("address", mdeCfg.Address), logger.Uint64("port", uint64(mdeCfg.Port)))

	mailboxes, err := mailbox.New(mdeCfg.StoragePath)
	if err != nil {
		return fmt.Errorf("opening mailbox store: %w", err)
	}
	shares, err := share.New(mdeCfg.ShareDirectory)
	if err != nil {
		return fmt.Errorf("opening share store: %w", err)
	}

	mailboxStaging := staging.New()
	shareStaging := staging.New()

	router := httpapi.New(mailboxes, shares, mailboxStaging, shareStaging, log)

	checker := health.NewChecker()
	checker.Register("mailbox_storage", health.DirReachable(mdeCfg.StoragePath))
	checker.Register("share_storage", health.DirReachable(mdeCfg.ShareDirectory))

	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Handler(checker))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpmw.Recover(log, router))

	addr := fmt.Sprintf("%s:%d", mdeCfg.Address, mdeCfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	jan := janitor.New(mailboxes, shares, mailboxStaging, shareStaging, httpapi.MailboxGrace, httpapi.ShareTTL, sweepInterval, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("message delivery engine listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return jan.Run(gctx)
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
	log.Info("message delivery engine stopped")
	return nil
}
