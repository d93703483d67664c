package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"padget/internal/config"
)

var (
	historyLimit int
	configForce  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent catalogue activity",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage padget configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Entries to show (default history.limit)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.History.Enabled {
		return fmt.Errorf("activity log is disabled (history.enabled=false)")
	}
	hist, err := openActivity()
	if err != nil {
		return err
	}

	limit := historyLimit
	if limit <= 0 {
		limit = cfg.History.Limit
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	entries, err := hist.Recent(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No activity recorded yet."))
		return nil
	}
	t := newTable("Recent activity", "When", "Op", "Message")
	for _, e := range entries {
		t.addRow(e.At.Format("2006-01-02 15:04:05"), string(e.Op), e.Message())
	}
	fmt.Fprint(out, t.render())
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
	return nil
}
