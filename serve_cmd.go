package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/charmbracelet/readaloud/internal/audio"
	"github.com/charmbracelet/readaloud/internal/bus"
	"github.com/charmbracelet/readaloud/internal/extract"
	"github.com/charmbracelet/readaloud/internal/host"
	"github.com/charmbracelet/readaloud/internal/observe"
	"github.com/charmbracelet/readaloud/internal/session"
	"github.com/charmbracelet/readaloud/internal/synth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the read-aloud daemon",
	Long: paragraph(fmt.Sprintf(
		"\n%s the daemon that owns reading sessions. The read, pause, resume, stop and status commands talk to it over the message bus.",
		keyword("Run"),
	)),
	Example: paragraph("readaloud serve\nreadaloud serve --ephemeral --metrics-addr 127.0.0.1:9464"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		closer, err := setupLog()
		if err != nil {
			return err
		}
		defer func() { _ = closer() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, opts)
	},
}

func init() {
	serveCmd.Flags().Bool("ephemeral", false, "keep settings in memory only")
	serveCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	serveCmd.Flags().String("engine-mode", "", "host the playback engine as a subprocess or inprocess")

	_ = viper.BindPFlag("settings.ephemeral", serveCmd.Flags().Lookup("ephemeral"))
	_ = viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("engine.mode", serveCmd.Flags().Lookup("engine-mode"))
}

func runServe(ctx context.Context, o options) error {
	logger := log.WithPrefix("serve")

	url := o.busAddress()
	if o.BusEmbedded && o.BusURL == "" {
		srv, err := bus.StartServer(bus.ServerOptions{
			Port:   o.BusPort,
			Logger: log.WithPrefix("bus"),
		})
		if err != nil {
			return fmt.Errorf("start message bus: %w", err)
		}
		defer srv.Shutdown()
		url = srv.URL()
	}

	client, err := bus.Connect(ctx, url, "readaloud-serve", logger)
	if err != nil {
		return err
	}
	defer client.Close()

	metrics := observe.Noop()
	if o.MetricsAddr != "" {
		mp, handler, err := observe.InitProvider()
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() { _ = mp.Shutdown(context.Background()) }()

		if metrics, err = observe.NewMetrics(mp); err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		go func() {
			if err := observe.Serve(ctx, o.MetricsAddr, handler, logger); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	store, err := openSettings(ctx, o)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	defer func() { _ = store.Close() }()

	var s synth.Synthesizer = synth.NewOpenAI(
		synth.WithBaseURL(o.BaseURL),
		synth.WithLogger(log.WithPrefix("synth")),
	)
	if o.RequestsPerMinute > 0 {
		s = synth.NewLimited(s, o.RequestsPerMinute, o.Concurrency)
	}
	if o.CacheEnabled {
		audioCache, err := openCache(o, log.WithPrefix("cache"))
		if err != nil {
			return fmt.Errorf("open audio cache: %w", err)
		}
		defer func() { _ = audioCache.Close() }()
		s = synth.NewCached(s, audioCache, metrics, log.WithPrefix("cache"))
	}

	engines := host.NewManager(host.Config{
		Launcher:       newLauncher(o, url),
		Sender:         client,
		Subject:        bus.SubjectEngine,
		Logger:         log.WithPrefix("host"),
		ReadyTimeout:   o.EngineReadyTimeout,
		RequestTimeout: o.EngineRequestTimeout,
	})
	defer func() { _ = engines.Close() }()

	ctrl := session.NewController(session.Config{
		Host:        engines,
		Synth:       s,
		Extractor:   extract.New(log.WithPrefix("extract")),
		Settings:    store,
		Metrics:     metrics,
		Logger:      log.WithPrefix("session"),
		Concurrency: o.Concurrency,
		MaxChunkLen: o.MaxChunkLen,
		APIKey:      o.Env.OpenAIAPIKey,
	})
	defer func() { _ = ctrl.Close() }()

	if err := client.Serve(bus.SubjectController, ctrl); err != nil {
		return err
	}
	watchConfig(logger)

	logger.Info("ready", "bus", url, "engine", o.EngineMode, "audio", engines.Supported())
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func newLauncher(o options, url string) host.Launcher {
	logger := log.WithPrefix("engine")
	if o.EngineMode == engineInProcess {
		return host.NewInProcess(audio.Available, func(ctx context.Context) (io.Closer, error) {
			rt, err := startEngine(ctx, o, url, logger)
			if err != nil {
				return nil, err
			}
			return rt, nil
		})
	}

	args := []string{"engine", "--bus-url", url, "--log-level", o.LogLevel.String()}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}
	return &host.Subprocess{
		Args:   args,
		Logger: logger,
		Audio:  func() bool { return audio.Compiled },
	}
}

// watchConfig applies log level changes without a restart.
func watchConfig(logger *log.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		lvl, err := parseLevel(viper.GetString("log.level"))
		if err != nil {
			logger.Warn("ignoring config change", "file", e.Name, "err", err)
			return
		}
		log.SetLevel(lvl)
		logger.Info("config reloaded", "file", e.Name, "level", lvl)
	})
	viper.WatchConfig()
}
