package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hanzireader/internal/reading"
	"hanzireader/internal/store"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect and edit reading progress",
	}
	progressCmd.AddCommand(newProgressShowCommand(ctx))
	progressCmd.AddCommand(newProgressSetCommand(ctx))
	progressCmd.AddCommand(newProgressListCommand(ctx))
	return progressCmd
}

type progressView struct {
	BookID             string  `json:"bookId"`
	Found              bool    `json:"found"`
	ScrollPosition     float64 `json:"scrollPosition"`
	ProgressPercentage float64 `json:"progressPercentage"`
	Label              string  `json:"label"`
	Page               int     `json:"page,omitempty"`
	TotalPages         int     `json:"totalPages,omitempty"`
	LastRead           string  `json:"lastRead,omitempty"`
}

func newProgressShowCommand(ctx *commandContext) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show saved progress for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				bookID := strings.TrimSpace(args[0])
				progress, found, err := s.GetReadingProgress(c, bookID)
				if err != nil {
					return err
				}
				view := progressView{BookID: bookID, Found: found}
				if found {
					view.ScrollPosition = progress.ScrollPosition
					view.ProgressPercentage = progress.ProgressPercentage
					view.LastRead = progress.LastRead.Format("2006-01-02 15:04:05Z07:00")
				}
				view.Label = reading.Label(view.ProgressPercentage)
				if lines > 0 {
					cfg, _ := ctx.ensureConfig()
					view.TotalPages = reading.TotalPages(lines, cfg.Reading.LinesPerPage)
					view.Page = reading.CurrentPage(view.ProgressPercentage, view.TotalPages)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				if !found {
					fmt.Fprintf(out, "No progress saved for %s\n", bookID)
					return nil
				}
				fmt.Fprintf(out, "Book: %s\n", view.BookID)
				fmt.Fprintf(out, "Progress: %s\n", view.Label)
				fmt.Fprintf(out, "Scroll position: %s\n", strconv.FormatFloat(view.ScrollPosition, 'f', -1, 64))
				if view.TotalPages > 0 {
					fmt.Fprintf(out, "Page: %d / %d\n", view.Page, view.TotalPages)
				}
				fmt.Fprintf(out, "Last read: %s (%s)\n", view.LastRead, humanize.Time(progress.LastRead))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&lines, "lines", 0, "Line count of the book, to report the page indicator")
	return cmd
}

func newProgressSetCommand(ctx *commandContext) *cobra.Command {
	var scroll float64
	var segmented bool
	cmd := &cobra.Command{
		Use:   "set <book-id> <percent>",
		Short: "Record reading progress for a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(args[1]), "%"), 64)
			if err != nil {
				return fmt.Errorf("parse percent %q: %w", args[1], err)
			}
			if percent < 0 || percent > 100 {
				return fmt.Errorf("percent must be between 0 and 100, got %v", percent)
			}
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				cfg, _ := ctx.ensureConfig()
				opts := append(reading.OptionsFromConfig(cfg), reading.WithLogger(ctx.loggerValue()))
				tracker := reading.NewTracker(s, opts...)
				if _, err := tracker.Activate(c, reading.Content{BookID: args[0], Segmented: segmented}); err != nil {
					return err
				}
				if err := tracker.UpdateProgress(c, scroll, percent); err != nil {
					return err
				}
				if err := tracker.Close(c); err != nil {
					return err
				}
				pos := tracker.Position()
				if ctx.JSONMode() {
					return writeJSON(cmd, progressView{
						BookID:             strings.TrimSpace(args[0]),
						Found:              true,
						ScrollPosition:     pos.ScrollPosition,
						ProgressPercentage: pos.ProgressPercentage,
						Label:              reading.Label(pos.ProgressPercentage),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s at %s\n", strings.TrimSpace(args[0]), reading.Label(pos.ProgressPercentage))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&scroll, "scroll", 0, "Scroll offset to store with the percentage")
	cmd.Flags().BoolVar(&segmented, "segmented", false, "Progress was recorded in segmented rendering")
	return cmd
}

func newProgressListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently read books",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				entries, err := reading.NewShelf(s).Entries(c, limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if entries == nil {
						entries = []reading.ShelfEntry{}
					}
					return writeJSON(cmd, entries)
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{e.BookID, e.Label, humanize.Time(e.LastRead)})
				}
				printTable(cmd.OutOrStdout(), []string{"Book", "Progress", "Last Read"}, rows, 2)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of books to list (0 for all)")
	return cmd
}
