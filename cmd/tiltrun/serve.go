package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/cfoust/tiltrun/pkg/clock"
	"github.com/cfoust/tiltrun/pkg/config"
	"github.com/cfoust/tiltrun/pkg/feed"
	"github.com/cfoust/tiltrun/pkg/game"
	"github.com/cfoust/tiltrun/pkg/gesture"
	"github.com/cfoust/tiltrun/pkg/sensor"
	"github.com/cfoust/tiltrun/pkg/shell"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const SHUTDOWN_TIMEOUT = 2 * time.Second

// logToFile sends logs to a file so they do not draw over the terminal shell.
func logToFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        file,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	})
	return file, nil
}

// logStatus reports sensor status changes when there is no shell to show them.
func logStatus(ctx context.Context, link *sensor.Link) {
	subscriber := link.Status.Subscribe()
	defer subscriber.Done()

	for {
		select {
		case status := <-subscriber.Recv():
			log.Info().Str("state", status.State.String()).Msg(status.String())
		case <-ctx.Done():
			return
		}
	}
}

// watchConfig applies gesture tuning from edited config files until ctx is
// done or the watcher is closed.
func watchConfig(ctx context.Context, watcher *config.Watcher, detector *gesture.Detector) {
	for {
		select {
		case cfg, ok := <-watcher.Reloads:
			if !ok {
				return
			}
			detector.SetTuning(gesture.TuningFromConfig(cfg.Gesture))
			log.Info().Msg("reloaded gesture tuning")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("ignoring invalid configuration")
		case <-ctx.Done():
			return
		}
	}
}

func serveCommand(configs []string) error {
	cfg, err := config.Process(configs)
	if err != nil {
		return fmt.Errorf("failed to load tiltrun configuration: %w", err)
	}

	useShell := cfg.Shell.Enabled && !CLI.Serve.Headless
	if useShell {
		path := cfg.Shell.LogFile
		if CLI.Serve.LogFile != "" {
			path = CLI.Serve.LogFile
		}

		file, err := logToFile(path)
		if err != nil {
			return err
		}
		defer file.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := game.New(
		game.SettingsFromConfig(cfg.Game),
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	detector := gesture.NewDetector(gesture.TuningFromConfig(cfg.Gesture))

	link := sensor.NewLink(cfg.Sensor, gesture.NewRouter(detector, engine))
	err = link.Listen()
	if err != nil {
		return err
	}
	defer link.Shutdown()

	ticker := clock.New(cfg.Clock.TickInterval())
	loop := game.NewLoop(engine, ticker)
	loop.OnStart(detector)

	monitor := clock.NewMonitor(log.With().Str("component", "loop").Logger(), cfg.Clock.HealthTimeout())
	loop.SetMonitor(monitor)
	go monitor.Poll(ctx)

	if cfg.Feed.Enabled {
		displays := feed.New(loop.RequestRestart)
		err = displays.Listen(cfg.Sensor.Address, cfg.Feed.Port)
		if err != nil {
			return err
		}

		go func() {
			if err := displays.Serve(); err != nil {
				log.Error().Err(err).Msg("feed stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
			defer cancel()
			displays.Shutdown(shutdownCtx)
		}()

		go displays.WatchStatus(ctx, link.Status)
		loop.AddRenderer(displays)
	}

	if len(configs) > 0 {
		watcher, err := config.NewWatcher(configs)
		if err != nil {
			log.Warn().Err(err).Msg("config files will not be reloaded")
		} else {
			defer watcher.Close()
			go watchConfig(ctx, watcher, detector)
		}
	}

	quit := make(chan struct{})
	if useShell {
		terminal, err := shell.Open(loop.RequestRestart)
		if err != nil {
			return err
		}
		defer terminal.Close()

		go terminal.WatchStatus(ctx, link.Status)
		loop.AddRenderer(terminal)

		go func() {
			terminal.Run(ctx)
			close(quit)
		}()
	} else {
		go logStatus(ctx, link)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- link.Serve(ctx)
	}()

	go loop.Run(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	select {
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("sensor link failed")
		}
	case sig := <-sigs:
		log.Info().Msgf("terminating: %v", sig)
	case <-quit:
		log.Info().Msg("terminating: quit from shell")
	}

	cancel()
	return nil
}
