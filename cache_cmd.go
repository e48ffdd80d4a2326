package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the audio cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show how much synthesized audio is cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCache(opts, log.WithPrefix("cache"))
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			s := c.Stats()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", keyword("Directory:"), s.Dir)
			fmt.Fprintf(w, "%s %d entries, %s of %s\n", keyword("Disk:"),
				s.Disk.ItemCount, humanize.IBytes(uint64(s.Disk.Size)), humanize.IBytes(uint64(s.Disk.Capacity))) //nolint:gosec
			fmt.Fprintf(w, "%s %s\n", keyword("TTL:"), faint(fmt.Sprintf("%d days", opts.CacheTTLDays)))
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCache(opts, log.WithPrefix("cache"))
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			before := c.Stats().Disk
			if err := c.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries (%s)\n", before.ItemCount, humanize.IBytes(uint64(before.Size))) //nolint:gosec
			return nil
		},
	}
)

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
