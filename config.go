package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/charmbracelet/readaloud/internal/bus"
	"github.com/charmbracelet/readaloud/internal/chunk"
	"github.com/charmbracelet/readaloud/internal/session"
	"github.com/charmbracelet/readaloud/internal/speech"
)

// Env holds settings that are only read from the environment.
type Env struct {
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
}

// envKeyReplacer maps config keys like bus.url to READALOUD_BUS_URL.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Engine hosting modes.
const (
	engineSubprocess = "subprocess"
	engineInProcess  = "inprocess"
)

// options is the resolved configuration shared by every command.
type options struct {
	LogLevel log.Level

	BusEmbedded bool
	BusURL      string
	BusPort     int

	EngineMode           string
	EngineReadyTimeout   time.Duration
	EngineRequestTimeout time.Duration
	SpeechCommand        string

	Concurrency       int
	MaxChunkLen       int
	RequestsPerMinute int
	BaseURL           string

	CacheEnabled  bool
	CacheMemoryMB int
	CacheDiskMB   int
	CacheTTLDays  int
	CacheDir      string

	SettingsPath string
	Ephemeral    bool
	MetricsAddr  string

	Env Env
}

func setConfigDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("bus.embedded", true)
	viper.SetDefault("bus.url", "")
	viper.SetDefault("bus.port", bus.DefaultPort)
	viper.SetDefault("engine.mode", engineSubprocess)
	viper.SetDefault("engine.ready_timeout", "4s")
	viper.SetDefault("engine.request_timeout", "10s")
	viper.SetDefault("engine.speech_command", speech.DefaultCommandLine())
	viper.SetDefault("synth.concurrency", session.DefaultConcurrency)
	viper.SetDefault("synth.max_chunk_len", chunk.DefaultMaxLen)
	viper.SetDefault("synth.requests_per_minute", 0)
	viper.SetDefault("synth.base_url", "")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.memory_mb", 64)
	viper.SetDefault("cache.disk_mb", 512)
	viper.SetDefault("cache.ttl_days", 7)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("settings.path", "")
	viper.SetDefault("settings.ephemeral", false)
	viper.SetDefault("metrics.addr", "")
}

// loadOptions reads the configuration from viper and the environment. A
// .env file in the working directory is loaded first when present.
func loadOptions() (options, error) {
	_ = godotenv.Load()

	e, err := env.ParseAs[Env]()
	if err != nil {
		return options{}, fmt.Errorf("error parsing environment: %w", err)
	}

	lvl, err := parseLevel(viper.GetString("log.level"))
	if err != nil {
		return options{}, err
	}

	o := options{
		LogLevel: lvl,

		BusEmbedded: viper.GetBool("bus.embedded"),
		BusURL:      viper.GetString("bus.url"),
		BusPort:     viper.GetInt("bus.port"),

		EngineMode:           viper.GetString("engine.mode"),
		EngineReadyTimeout:   viper.GetDuration("engine.ready_timeout"),
		EngineRequestTimeout: viper.GetDuration("engine.request_timeout"),
		SpeechCommand:        viper.GetString("engine.speech_command"),

		Concurrency:       viper.GetInt("synth.concurrency"),
		MaxChunkLen:       viper.GetInt("synth.max_chunk_len"),
		RequestsPerMinute: viper.GetInt("synth.requests_per_minute"),
		BaseURL:           viper.GetString("synth.base_url"),

		CacheEnabled:  viper.GetBool("cache.enabled"),
		CacheMemoryMB: viper.GetInt("cache.memory_mb"),
		CacheDiskMB:   viper.GetInt("cache.disk_mb"),
		CacheTTLDays:  viper.GetInt("cache.ttl_days"),
		CacheDir:      viper.GetString("cache.dir"),

		SettingsPath: viper.GetString("settings.path"),
		Ephemeral:    viper.GetBool("settings.ephemeral"),
		MetricsAddr:  viper.GetString("metrics.addr"),

		Env: e,
	}
	if o.BaseURL == "" {
		o.BaseURL = e.OpenAIBaseURL
	}
	return o, o.validate()
}

func (o options) validate() error {
	var errs []error
	switch o.EngineMode {
	case engineSubprocess, engineInProcess:
	default:
		errs = append(errs, fmt.Errorf("engine.mode must be %q or %q, got %q", engineSubprocess, engineInProcess, o.EngineMode))
	}
	if o.Concurrency < 1 || o.Concurrency > 16 {
		errs = append(errs, fmt.Errorf("synth.concurrency must be between 1 and 16, got %d", o.Concurrency))
	}
	if o.MaxChunkLen < 50 {
		errs = append(errs, fmt.Errorf("synth.max_chunk_len must be at least 50, got %d", o.MaxChunkLen))
	}
	if o.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("synth.requests_per_minute must not be negative"))
	}
	if o.BusPort < 0 || o.BusPort > 65535 {
		errs = append(errs, fmt.Errorf("bus.port out of range: %d", o.BusPort))
	}
	if !o.BusEmbedded && o.BusURL == "" {
		errs = append(errs, errors.New("bus.url is required when bus.embedded is false"))
	}
	return errors.Join(errs...)
}

// busAddress is where clients and the engine find the bus.
func (o options) busAddress() string {
	if o.BusURL != "" {
		return o.BusURL
	}
	return fmt.Sprintf("nats://127.0.0.1:%d", o.BusPort)
}
