package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storestorm/intake/pkg/app"
	"github.com/storestorm/intake/pkg/logging"
	"github.com/storestorm/intake/pkg/redact"
	"github.com/storestorm/intake/pkg/runner"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(log)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup_failed", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle := runner.NewLifecycleRunner(application, runner.Hooks{
		OnStart: func() {
			if err := application.Start(ctx); err != nil {
				log.Error("start_failed", "error", err.Error())
				cancel()
			}
		},
		OnStop: func() {
			log.Info("shutdown_complete")
		},
	}, 15*time.Second)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutdown_signal")
		cancel()
	}()

	if err := lifecycle.Run(ctx); err != nil {
		log.Error("run_failed", "error", err.Error())
		os.Exit(1)
	}
}
