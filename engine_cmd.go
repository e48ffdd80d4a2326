package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/charmbracelet/readaloud/internal/audio"
	"github.com/charmbracelet/readaloud/internal/bus"
	"github.com/charmbracelet/readaloud/internal/playback"
	"github.com/charmbracelet/readaloud/internal/speech"
)

var engineCmd = &cobra.Command{
	Use:    "engine",
	Short:  "Run the playback engine",
	Long:   paragraph("\nRun the playback engine. The daemon starts it on demand; there is usually no need to run it by hand."),
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		closer, err := setupLog()
		if err != nil {
			return err
		}
		defer func() { _ = closer() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := startEngine(ctx, opts, opts.busAddress(), log.WithPrefix("engine"))
		if err != nil {
			return err
		}
		<-ctx.Done()
		return rt.Close()
	},
}

// engineRuntime is a playback engine served on the bus.
type engineRuntime struct {
	engine *playback.Engine
	device *audio.Device
	client *bus.Client
	logger *log.Logger
}

func startEngine(ctx context.Context, o options, url string, logger *log.Logger) (*engineRuntime, error) {
	dev, err := audio.NewDevice(audio.DefaultDeviceConfig(), logger)
	if err != nil {
		logger.Warn("audio output unavailable, only local speech will play", "err", err)
		dev = nil
	}

	cfg := engineConfig(o, dev, logger)
	eng := playback.NewEngine(cfg)

	client, err := bus.Connect(ctx, url, "readaloud-engine", logger)
	if err != nil {
		_ = eng.Close()
		closeDevice(dev)
		return nil, err
	}
	if err := client.Serve(bus.SubjectEngine, eng); err != nil {
		client.Close()
		_ = eng.Close()
		closeDevice(dev)
		return nil, err
	}

	logger.Info("playback engine ready", "bus", url, "audio", dev != nil, "speech", cfg.Speech != nil)
	return &engineRuntime{engine: eng, device: dev, client: client, logger: logger}, nil
}

func (r *engineRuntime) Close() error {
	r.client.Close()
	stats := r.engine.Stats()
	r.logger.Debug("playback engine stopped",
		"appended", stats.Appended,
		"played", stats.Played,
		"skipped", stats.Skipped,
		"finished", stats.Finished,
		"cleared", stats.Queue.TotalCleared,
		"peak_queue", stats.Queue.PeakSize,
		"avg_wait", stats.Queue.AverageWaitTime)
	err := r.engine.Close()
	if r.device != nil {
		err = errors.Join(err, r.device.Close())
	}
	return err
}

// engineConfig builds the playback config. dev may be nil, in which case
// the engine runs with local speech only.
func engineConfig(o options, dev *audio.Device, logger *log.Logger) playback.Config {
	cfg := playback.Config{
		Prober: audio.Prober{},
		Logger: logger,
	}
	if dev != nil {
		cfg.Device = dev
	}

	sp, err := speech.NewCommand(o.SpeechCommand, logger)
	switch {
	case err != nil:
		logger.Warn("local speech disabled", "err", err)
	case !sp.Available():
		logger.Warn("local speech disabled, command not found", "command", o.SpeechCommand)
	default:
		cfg.Speech = sp
	}
	return cfg
}

func closeDevice(dev *audio.Device) {
	if dev != nil {
		_ = dev.Close()
	}
}
