package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# log level: debug, info, warn or error
log:
  level: "info"

# message bus between the client, the daemon and the playback engine
bus:
  # run a NATS server inside "readaloud serve"
  embedded: true
  # connect to an external server instead (e.g. nats://127.0.0.1:4222)
  url: ""
  # port of the embedded server
  port: 14222

# playback engine
engine:
  # subprocess or inprocess
  mode: "subprocess"
  ready_timeout: "4s"
  request_timeout: "10s"
  # local speech command; {text} is replaced by each sentence
  # speech_command: "espeak-ng -s 170 {text}"

# remote speech synthesis
synth:
  # chunks fetched in parallel after the first one
  concurrency: 3
  # maximum characters per chunk
  max_chunk_len: 600
  # 0 disables client-side rate limiting
  requests_per_minute: 0
  # base_url: "https://api.openai.com/v1"

# synthesized audio cache
cache:
  enabled: true
  memory_mb: 64
  disk_mb: 512
  ttl_days: 7
  # dir: "~/.cache/readaloud/audio"

# preference storage
settings:
  # path: "~/.local/share/readaloud/settings.db"
  ephemeral: false

# serve Prometheus metrics on this address, e.g. "127.0.0.1:9464"
metrics:
  addr: ""
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the readaloud config file",
	Long:    paragraph(fmt.Sprintf("\n%s the readaloud config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("readaloud config\nreadaloud config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("readaloud", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
