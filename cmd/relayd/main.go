package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/inkrelay/internal/config"
	"github.com/danmuck/inkrelay/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/relayd/config.toml", "relayd config path")
	dryRun := flag.Bool("dry-run", false, "record surface calls instead of rendering")
	flag.Parse()

	logging.ConfigureRuntime("relayd")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load relayd config")
	}
	log.Info().Str("path", *configPath).Str("transport", cfg.Transport.Kind).Str("surface", cfg.Surface.Kind).Msg("loaded relayd config")
	if *dryRun {
		cfg.Surface.Kind = config.SurfaceRecorder
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("relayd stopped")
	}
	log.Info().Msg("relayd stopped")
}
