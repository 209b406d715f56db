package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"hanzireader/internal/store"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Reader database maintenance",
	}
	storeCmd.AddCommand(newStoreHealthCommand(ctx))
	storeCmd.AddCommand(newStoreBackupCommand(ctx))
	return storeCmd
}

func newStoreHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check reader database health (schema, integrity, collections)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// A missing database is reported, not created.
			s := store.New(cfg.StorePath(), store.WithLogger(ctx.loggerValue()), store.WithBusyTimeout(cfg.BusyTimeout()))
			defer s.Close()

			health, checkErr := s.CheckHealth(cmd.Context())
			if checkErr != nil && health.Error == "" {
				health.Error = checkErr.Error()
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, health)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
			fmt.Fprintln(out, renderStatusLine("Database exists", okOrError(health.DatabaseExists), yesNo(health.DatabaseExists), colorize))
			if !health.DatabaseExists {
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Readable", okOrError(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize))
			versionKind := statusOK
			if health.SchemaVersion < store.SchemaVersion {
				versionKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Schema version", versionKind, fmt.Sprintf("%d", health.SchemaVersion), colorize))
			fmt.Fprintln(out, renderStatusLine("Collections", okOrError(len(health.MissingCollections) == 0), missingSummary(health.MissingCollections), colorize))
			fmt.Fprintln(out, renderStatusLine("Indexes", okOrError(len(health.MissingIndexes) == 0), missingSummary(health.MissingIndexes), colorize))
			fmt.Fprintln(out, renderStatusLine("Integrity check", okOrError(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize))
			names := make([]string, 0, len(health.Counts))
			for name := range health.Counts {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "%s records: %d\n", name, health.Counts[name])
			}
			if health.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", health.Error)
			}
			return nil
		},
	}
}

func missingSummary(missing []string) string {
	if len(missing) == 0 {
		return "all present"
	}
	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)
	return "missing " + strings.Join(sorted, ", ")
}

func newStoreBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <destination>",
		Short: "Write a consistent copy of the reader database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				if err := s.Backup(c, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", args[0])
				return nil
			})
		},
	}
}
