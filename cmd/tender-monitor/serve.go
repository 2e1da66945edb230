package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/maxaizer/tender-monitor/internal/bot"
	"github.com/maxaizer/tender-monitor/internal/metrics"
	"github.com/maxaizer/tender-monitor/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveScanOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled scans, retention sweeps and the Telegram bot",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveScanOnStart, "scan-now", false, "Run a scan immediately instead of waiting for the schedule")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	metricsServer := metrics.StartMetricsServer(a.cfg.Metrics.Port)

	if err = a.subscribeNotifiers(ctx); err != nil {
		return err
	}

	scanner, err := a.scanner()
	if err != nil {
		return fmt.Errorf("can't create scanner: %w", err)
	}

	scheduler, err := services.NewScheduler(scanner, a.cfg.Scan.Schedule)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	sweeper, err := a.sweeper()
	if err != nil {
		return fmt.Errorf("can't create sweeper: %w", err)
	}
	if err = sweeper.Start(a.cfg.Retention.Schedule); err != nil {
		return err
	}
	defer sweeper.Stop()

	if a.cfg.Telegram.Enabled() {
		tgbot, err := bot.NewBot(a.cfg.Telegram.Token, a.bus, a.profiles)
		if err != nil {
			return fmt.Errorf("can't create bot: %w", err)
		}
		go tgbot.Run(ctx)
		defer tgbot.Stop()
	}

	if serveScanOnStart {
		scheduler.RunNow()
	}

	<-ctx.Done()

	log.Info("Shutting down services...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to stop metrics server: %v", err)
	}
	return nil
}
