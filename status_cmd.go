package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/charmbracelet/readaloud/internal/protocol"
	"github.com/charmbracelet/readaloud/ui"
)

var (
	statusJSON  bool
	statusWatch bool

	statusCmd = &cobra.Command{
		Use:     "status",
		Short:   "Show what is being read",
		Example: paragraph("readaloud status\nreadaloud status --json\nreadaloud status --watch"),
		Args:    cobra.NoArgs,
		RunE:    runStatus,
	}
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the raw status as JSON")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "keep watching and control playback from the keyboard")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	timeout := opts.EngineRequestTimeout + opts.EngineReadyTimeout
	if statusWatch {
		return watchStatus(cmd.Context(), timeout)
	}

	resp, err := callDaemon(cmd.Context(), timeout, protocol.KindGetStatus, nil)
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.NewStatusDisplay().Update(resp).DetailedStatus(terminalWidth()))
	return nil
}

func watchStatus(ctx context.Context, timeout time.Duration) error {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	d, err := connectDaemon(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer d.Close()

	p := ui.NewWatchProgram(ui.WatchConfig{
		Poll: func(ctx context.Context) (protocol.Response, error) {
			return d.call(ctx, protocol.KindGetStatus, nil)
		},
		Control: func(ctx context.Context, kind protocol.Kind) error {
			_, err := d.call(ctx, kind, nil)
			return err
		},
		Timeout: timeout,
	}, tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
