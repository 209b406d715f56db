package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hanzireader/internal/fileutil"
	"hanzireader/internal/lookup"
	"hanzireader/internal/store"
)

func newWordsCommand(ctx *commandContext) *cobra.Command {
	wordsCmd := &cobra.Command{
		Use:   "words",
		Short: "Look up and manage saved vocabulary",
	}
	wordsCmd.AddCommand(newWordsLookupCommand(ctx))
	wordsCmd.AddCommand(newWordsSaveCommand(ctx))
	wordsCmd.AddCommand(newWordsListCommand(ctx))
	wordsCmd.AddCommand(newWordsShowCommand(ctx))
	wordsCmd.AddCommand(newWordsSpeakCommand(ctx))
	return wordsCmd
}

func (c *commandContext) lookupService(s *store.Store) (*lookup.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return lookup.NewService(s, lookup.NewHTTPRemoteFromConfig(cfg), lookup.WithLogger(c.loggerValue())), nil
}

type lookupView struct {
	lookup.WordInfo
	FromCache bool `json:"fromCache"`
}

func newWordsLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <word>",
		Short: "Look up a word, using the dictionary cache when possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				svc, err := ctx.lookupService(s)
				if err != nil {
					return err
				}
				res, err := svc.Lookup(c, args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, lookupView{WordInfo: res.Info, FromCache: res.FromCache})
				}
				printWordInfo(cmd, res.Info)
				fmt.Fprintf(cmd.OutOrStdout(), "Cached: %s\n", yesNo(res.FromCache))
				return nil
			})
		},
	}
}

func newWordsSaveCommand(ctx *commandContext) *cobra.Command {
	var bookID string
	var sentence string
	cmd := &cobra.Command{
		Use:   "save <word>",
		Short: "Look up a word and add it to the vocabulary list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(sentence) != "" && strings.TrimSpace(bookID) == "" {
				return fmt.Errorf("--sentence requires --book")
			}
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				svc, err := ctx.lookupService(s)
				if err != nil {
					return err
				}
				res, err := svc.Lookup(c, args[0])
				if err != nil {
					return err
				}
				var bookContext *store.BookContext
				if id := strings.TrimSpace(bookID); id != "" {
					bookContext = &store.BookContext{BookID: id, Sentence: strings.TrimSpace(sentence)}
				}
				saved, err := svc.Save(c, res.Info, bookContext)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, saved)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) as %s\n", saved.Word, saved.Pinyin, saved.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bookID, "book", "", "Book the word was found in")
	cmd.Flags().StringVar(&sentence, "sentence", "", "Sentence the word was found in")
	return cmd
}

func newWordsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved words, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				words, err := s.ListSavedWords(c, limit)
				if err != nil {
					return err
				}
				return renderSavedWords(cmd, ctx, words)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of words to list (0 for all)")
	return cmd
}

func newWordsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <word>",
		Short: "Show every saved entry for a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				words, err := s.SavedWordsByWord(c, lookup.NormalizeWord(args[0]))
				if err != nil {
					return err
				}
				return renderSavedWords(cmd, ctx, words)
			})
		},
	}
}

func newWordsSpeakCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Fetch pronunciation audio, using the audio cache when possible",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outPath) == "" {
				return fmt.Errorf("--out is required")
			}
			return ctx.withStore(cmd, func(c context.Context, s *store.Store) error {
				svc, err := ctx.lookupService(s)
				if err != nil {
					return err
				}
				audio, cached, err := svc.Speech(c, args[0])
				if err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(outPath, audio, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s (cached: %s)\n", humanize.Bytes(uint64(len(audio))), outPath, yesNo(cached))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "File to write the audio to")
	return cmd
}

func renderSavedWords(cmd *cobra.Command, ctx *commandContext, words []store.SavedWord) error {
	if ctx.JSONMode() {
		if words == nil {
			words = []store.SavedWord{}
		}
		return writeJSON(cmd, words)
	}
	rows := make([][]string, 0, len(words))
	for _, w := range words {
		book := ""
		if w.BookContext != nil {
			book = w.BookContext.BookID
		}
		rows = append(rows, []string{w.Word, w.Pinyin, w.Translation, book, humanize.Time(w.DateAdded)})
	}
	printTable(cmd.OutOrStdout(), []string{"Word", "Pinyin", "Translation", "Book", "Added"}, rows)
	return nil
}

func printWordInfo(cmd *cobra.Command, info lookup.WordInfo) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Word: %s\n", info.Word)
	fmt.Fprintf(out, "Pinyin: %s\n", info.Pinyin)
	if len(info.Segments) > 0 {
		fmt.Fprintf(out, "Segments: %s\n", strings.Join(info.Segments, " / "))
	}
	if info.Translation != "" {
		fmt.Fprintf(out, "Translation: %s\n", info.Translation)
	}
}
