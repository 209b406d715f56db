package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hanzireader/internal/lookup"
	"hanzireader/internal/store"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and sweep the dictionary and audio caches",
	}
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	return cacheCmd
}

type sweepView struct {
	Collection string `json:"collection"`
	Deleted    int64  `json:"deleted"`
	Error      string `json:"error,omitempty"`
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	var collection string
	var maxAge time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete cache entries older than the configured age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				var results []store.SweepResult
				var sweepErr error
				switch collection {
				case "":
					dictAge, audioAge := cfg.DictionaryMaxAge(), cfg.AudioMaxAge()
					if maxAge > 0 {
						dictAge, audioAge = maxAge, maxAge
					}
					results, sweepErr = s.SweepCaches(c, dictAge, audioAge)
				default:
					age := maxAge
					if age <= 0 {
						age = configuredMaxAge(cfg.DictionaryMaxAge(), cfg.AudioMaxAge(), collection)
					}
					n, err := s.Sweep(c, collection, age)
					results = []store.SweepResult{{Collection: collection, Deleted: n, Err: err}}
					sweepErr = err
				}

				if ctx.JSONMode() {
					views := make([]sweepView, 0, len(results))
					for _, r := range results {
						v := sweepView{Collection: r.Collection, Deleted: r.Deleted}
						if r.Err != nil {
							v.Error = r.Err.Error()
						}
						views = append(views, v)
					}
					if err := writeJSON(cmd, views); err != nil {
						return err
					}
					return sweepErr
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, r := range results {
					msg := fmt.Sprintf("removed %d", r.Deleted)
					if r.Err != nil {
						msg = r.Err.Error()
					}
					fmt.Fprintln(out, renderStatusLine(r.Collection, okOrError(r.Err == nil), msg, colorize))
				}
				return sweepErr
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "Sweep only this cache (dictionaryCache or audioCache)")
	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Override the configured maximum age (e.g. 72h)")
	return cmd
}

func configuredMaxAge(dictionary, audio time.Duration, collection string) time.Duration {
	if collection == store.AudioCacheCollection {
		return audio
	}
	return dictionary
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts per collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				stats, err := s.Stats(c)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, stats)
				}
				names := make([]string, 0, len(stats))
				for name := range stats {
					names = append(names, name)
				}
				sort.Strings(names)
				rows := make([][]string, 0, len(names))
				for _, name := range names {
					rows = append(rows, []string{name, humanize.Comma(stats[name])})
				}
				printTable(cmd.OutOrStdout(), []string{"Collection", "Records"}, rows, 2)
				return nil
			})
		},
	}
}

type cacheEntryView struct {
	Word            string           `json:"word"`
	Dictionary      *lookup.WordInfo `json:"dictionary,omitempty"`
	DictionaryAdded *time.Time       `json:"dictionaryAdded,omitempty"`
	AudioBytes      int              `json:"audioBytes"`
	AudioAdded      *time.Time       `json:"audioAdded,omitempty"`
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <word>",
		Short: "Show what is cached for a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				word := lookup.NormalizeWord(args[0])
				if word == "" {
					return lookup.ErrEmptyWord
				}
				view := cacheEntryView{Word: word}

				entry, found, err := s.GetDictionaryEntry(c, word)
				if err != nil {
					return err
				}
				if found {
					info, err := decodeWordInfo(entry)
					if err != nil {
						return err
					}
					view.Dictionary = &info
					view.DictionaryAdded = &entry.DateAdded
				}
				audio, found, err := s.GetAudio(c, word)
				if err != nil {
					return err
				}
				if found {
					view.AudioBytes = len(audio.AudioData)
					view.AudioAdded = &audio.DateAdded
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				if view.Dictionary == nil && view.AudioAdded == nil {
					fmt.Fprintf(out, "Nothing cached for %s\n", word)
					return nil
				}
				if view.Dictionary != nil {
					printWordInfo(cmd, *view.Dictionary)
					fmt.Fprintf(out, "Dictionary cached: %s\n", humanize.Time(*view.DictionaryAdded))
				}
				if view.AudioAdded != nil {
					fmt.Fprintf(out, "Audio cached: %s (%s)\n", humanize.Bytes(uint64(view.AudioBytes)), humanize.Time(*view.AudioAdded))
				}
				return nil
			})
		},
	}
}

func decodeWordInfo(entry store.CachedDictionaryEntry) (lookup.WordInfo, error) {
	var info lookup.WordInfo
	if len(entry.Data) == 0 {
		return info, errors.New("cached entry has no data")
	}
	if err := json.Unmarshal(entry.Data, &info); err != nil {
		return info, fmt.Errorf("decode cached entry for %q: %w", entry.Word, err)
	}
	return info, nil
}
