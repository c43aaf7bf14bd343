package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonirico/wsnotify"
)

// consoleSink prints notifications to out and logs connection reports.
type consoleSink struct {
	out    io.Writer
	logger zerolog.Logger
}

func (s consoleSink) Notify(n wsnotify.Notification) error {
	_, err := fmt.Fprintf(s.out, "%s  %s\n    %s\n", time.Now().Format(time.Kitchen), n.Title, n.Body)
	return err
}

func (s consoleSink) Report(r wsnotify.StatusReport) {
	switch r.Kind {
	case wsnotify.ReportConnected:
		s.logger.Info().Msg("connected to notifications")
	case wsnotify.ReportConnectionFailed:
		s.logger.Error().Err(r.Err).Msg("notification connection failed")
	case wsnotify.ReportReconnecting:
		s.logger.Warn().Int("attempt", r.Attempt).Dur("in", r.DisplayDelay).Msg("reconnecting")
	case wsnotify.ReportRetriesExhausted:
		s.logger.Error().Msg("max reconnects reached, restart to try again")
	}
}

func main() {
	cfg, err := wsnotify.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		os.Exit(2)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := wsnotify.NewClient(
		cfg,
		wsnotify.WithLogger(wsnotify.NewZerologLogger(zl)),
		wsnotify.WithSink(consoleSink{out: os.Stdout, logger: zl}),
	)

	client.SubscribeToStatus(func(s wsnotify.ConnectionStatus) {
		zl.Debug().Stringer("status", s).Msg("status changed")
	})

	zl.Info().Str("endpoint", cfg.ResolveEndpoint()).Msg("starting")
	client.Start()

	<-ctx.Done()

	client.Stop()
	<-client.Done()

	zl.Info().Stringer("client", client).Msg("stopped")
}
