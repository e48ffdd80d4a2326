package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/charmbracelet/readaloud/internal/settings"
)

var (
	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or change reading preferences",
		Long: paragraph(fmt.Sprintf(
			"\n%s the stored preferences: %s.",
			keyword("Show or change"), strings.Join(settings.Keys, ", "),
		)),
		Args: cobra.NoArgs,
	}

	settingsGetCmd = &cobra.Command{
		Use:     "get [KEY]",
		Short:   "Print the stored preferences",
		Example: paragraph("readaloud settings get\nreadaloud settings get openaiVoice"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runSettingsGet,
	}

	settingsSetCmd = &cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Store a preference",
		Example:   paragraph("readaloud settings set provider webspeech\nreadaloud settings set openaiVoice nova"),
		Args:      cobra.ExactArgs(2),
		ValidArgs: settings.Keys,
		RunE:      runSettingsSet,
	}

	settingsPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the location of the settings database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := settingsPath(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
)

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsPathCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	store, err := openSettings(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	s, err := store.Get(cmd.Context(), settings.Defaults())
	if err != nil {
		return err
	}
	s = s.WithAPIKeyFallback(opts.Env.OpenAIAPIKey).Masked()

	if len(args) == 1 {
		v, err := s.Field(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	}

	out, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], strings.TrimSpace(args[1])
	if value == "" {
		return fmt.Errorf("a value for %s is required", key)
	}

	var s settings.Settings
	if err := s.SetField(key, value); err != nil {
		return err
	}
	if key == settings.KeyVoice {
		if hint, ok := settings.SuggestVoice(value); ok {
			log.Warn("Unknown voice", "voice", value, "did you mean", hint)
		}
	}

	store, err := openSettings(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Set(cmd.Context(), s); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", keyword(key))
	return nil
}
