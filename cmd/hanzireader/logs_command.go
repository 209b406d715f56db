package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hanzireader/internal/logging"
	"hanzireader/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var query logs.Query
	var follow bool
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show entries from the hanzireader log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.FilePath(cfg)
			if path == "" {
				return errors.New("file logging is disabled (paths.log_dir is empty)")
			}
			res, err := logs.Read(cmd.Context(), path, query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			emit := func(e logs.Entry) error {
				if ctx.JSONMode() {
					return writeJSON(cmd, e)
				}
				printLogEntry(out, e)
				return nil
			}
			for _, e := range res.Entries {
				if err := emit(e); err != nil {
					return err
				}
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, res.Offset, query, poll, emit)
		},
	}

	cmd.Flags().IntVarP(&query.Limit, "lines", "n", 50, "Number of entries to show (0 for all)")
	cmd.Flags().StringVar(&query.MinLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&query.Component, "component", "", "Only show entries from this component")
	cmd.Flags().StringVar(&query.BookID, "book", "", "Only show entries for this book")
	cmd.Flags().StringVar(&query.EventType, "event", "", "Only show entries with this event type")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing entries as they are written")
	cmd.Flags().DurationVar(&poll, "poll", 250*time.Millisecond, "Polling interval in follow mode")
	return cmd
}

func printLogEntry(out io.Writer, e logs.Entry) {
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(e.Time)
		b.WriteByte(' ')
	}
	if e.Level != "" {
		fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	}
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	b.WriteString(e.Message)
	if e.BookID != "" {
		fmt.Fprintf(&b, " book=%s", e.BookID)
	}
	if e.EventType != "" {
		fmt.Fprintf(&b, " event=%s", e.EventType)
	}
	fmt.Fprintln(out, b.String())
}
