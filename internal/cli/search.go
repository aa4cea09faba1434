package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/engine"
	"github.com/gcbaptista/go-vsr-engine/internal/loader"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/internal/tokenizer"
	"github.com/gcbaptista/go-vsr-engine/services"
)

const (
	modeRanked = "ranked"
	modePhrase = "phrase"

	cliIndexName = "cli"
)

var (
	searchQuery    string
	searchMode     string
	searchLimit    int
	searchIncludes []string
	searchExcludes []string
	searchContext  bool
	searchWindow   int
	searchJSON     bool
	searchQuiet    bool
)

var searchCmd = &cobra.Command{
	Use:   "search <dir>",
	Short: "Index a directory in memory and query it",
	Long: `Load every matching file of a directory, build an index over it and run
one query. Nothing is persisted.

Modes:
  ranked  documents ordered by tf-idf cosine similarity (default)
  and     documents containing every term
  or      documents containing any term
  phrase  documents containing the exact phrase, with positions

Examples:
  vsr search ./docs -q "lazy dog"
  vsr search ./docs -q "fox dog" -m and
  vsr search ./docs -q "the lazy dog" -m phrase --context --window 3
  vsr search ./site -q "pricing" --include "**/*.html" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "query text (required)")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", modeRanked, "ranked, and, or or phrase")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", config.DefaultPageSize, "ranked results to print, 0 for all")
	searchCmd.Flags().StringSliceVar(&searchIncludes, "include", nil, "glob pattern of files to load (repeatable)")
	searchCmd.Flags().StringSliceVar(&searchExcludes, "exclude", nil, "glob pattern of files to skip (repeatable)")
	searchCmd.Flags().BoolVar(&searchContext, "context", false, "show the terms around phrase matches")
	searchCmd.Flags().IntVar(&searchWindow, "window", config.DefaultContextWindow, "terms shown on each side of a phrase match")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().BoolVar(&searchQuiet, "quiet", false, "hide the progress bar and summary")
	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	switch searchMode {
	case modeRanked, modePhrase, services.OperatorAnd, services.OperatorOr:
	default:
		return fmt.Errorf("unknown mode %q: use ranked, and, or or phrase", searchMode)
	}
	if searchLimit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	status := cmd.ErrOrStderr()
	if searchQuiet {
		status = io.Discard
		logger.SetupWriter(cmd.ErrOrStderr(), "error", GetConfig().Logging.Format)
	}

	settings := config.IndexSettings{
		Name:          cliIndexName,
		ContextWindow: searchWindow,
		Includes:      searchIncludes,
		Excludes:      searchExcludes,
	}
	if problems := settings.Validate(); len(problems) > 0 {
		return fmt.Errorf("invalid options: %s", strings.Join(problems, "; "))
	}

	docs, err := loader.New(settings.Includes, settings.Excludes, 0).Load(cmd.Context(), dir, newLoadProgress(status))
	if err != nil {
		return fmt.Errorf("loading failed: %w", err)
	}

	// Every ranked hit has to fit on the one page printed.
	settings.MaxPageSize = max(searchLimit, len(docs), config.DefaultMaxPageSize)

	eng, err := engine.NewEngine(engine.Options{})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.CreateIndex(settings); err != nil {
		return err
	}
	accessor, err := eng.GetIndex(cliIndexName)
	if err != nil {
		return err
	}
	if err := accessor.AddDocuments(docs); err != nil {
		return fmt.Errorf("staging failed: %w", err)
	}
	stats, err := accessor.Build()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Fprintf(status, "Indexed %d documents, %d distinct terms in %dms\n", stats.IndexedDocuments, stats.Tokens, stats.BuildTimeMs)

	out := cmd.OutOrStdout()
	switch searchMode {
	case modeRanked:
		limit := searchLimit
		if limit == 0 {
			limit = settings.MaxPageSize
		}
		result, err := accessor.Rank(cmd.Context(), services.RankQuery{Query: searchQuery, PageSize: limit})
		if err != nil {
			return err
		}
		if searchJSON {
			return writeJSON(out, result)
		}
		printRanked(out, result)
		if result.Total == 0 {
			printSuggestions(out, accessor, tokenizer.ParseQuery(searchQuery))
		}

	case modePhrase:
		result, err := accessor.Phrase(services.PhraseQuery{Phrase: searchQuery, Context: searchContext, Window: &searchWindow})
		if err != nil {
			return err
		}
		if searchJSON {
			return writeJSON(out, result)
		}
		printPhrase(out, searchQuery, result)

	default:
		result, err := accessor.Boolean(services.BooleanQuery{Terms: strings.Fields(searchQuery), Operator: searchMode})
		if err != nil {
			return err
		}
		if searchJSON {
			return writeJSON(out, result)
		}
		printBoolean(out, result)
		if result.Total == 0 {
			printSuggestions(out, accessor, strings.Fields(searchQuery))
		}
	}
	return nil
}

// newLoadProgress draws a progress bar once the number of files is known.
func newLoadProgress(w io.Writer) loader.ProgressFunc {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Loading"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		_ = bar.Set(done)
	}
}

func printRanked(w io.Writer, result services.RankResult) {
	if len(result.Hits) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	for _, hit := range result.Hits {
		fmt.Fprintf(w, "%d. Document: %s\t score: %v\n", hit.Rank, hit.DocumentID, hit.Score)
	}
}

func printBoolean(w io.Writer, result services.BooleanResult) {
	if len(result.Documents) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	for i, id := range result.Documents {
		fmt.Fprintf(w, "%d. Document: %s\n", i+1, id)
	}
}

func printPhrase(w io.Writer, phrase string, result services.PhraseResult) {
	if len(result.Hits) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return
	}
	for i, hit := range result.Hits {
		fmt.Fprintf(w, "%d. Document: %s\t positions: %v\n", i+1, hit.DocumentID, hit.Positions)
		for _, c := range hit.Contexts {
			fmt.Fprintf(w, "   %d: ...%s [%s] %s...\n", c.Position, c.Before, phrase, c.After)
		}
	}
}

// printSuggestions offers the closest vocabulary token for every unknown term.
func printSuggestions(w io.Writer, inspector services.Inspector, terms []string) {
	var hints []string
	for _, term := range terms {
		details := inspector.TokenDetails(term)
		if !details.Known && len(details.Suggestions) > 0 {
			hints = append(hints, details.Suggestions[0].Token)
		}
	}
	if len(hints) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(hints, " "))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
