package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sempr/judgecore/internal/config"
	"github.com/sempr/judgecore/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the judge HTTP server",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(conf.Logger.Level, conf.Logger.Format)

	srv, err := server.New(conf, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create server")
	}

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	return nil
}

func newLogger(level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stderr
	if format != "json" {
		writer = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
