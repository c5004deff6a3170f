package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docsweep/docsweep/config"
	"github.com/docsweep/docsweep/engine"
	"github.com/docsweep/docsweep/observability"
	"github.com/docsweep/docsweep/ocr/tesseract"
	"github.com/docsweep/docsweep/terms"
)

var (
	flagTerms       []string
	flagAddTerms    []string
	flagNoIdentify  bool
	flagOut         string
	flagLangs       []string
	flagParallel    int
	flagProvider    string
	flagModel       string
	flagPlaceholder string
	flagVerbose     bool
)

var redactCmd = &cobra.Command{
	Use:   "redact <file>",
	Short: "Redact a document into <base>_redacted<ext>",
	Long: "Redact locates every occurrence of the given terms in a PDF or DOCX " +
		"document and writes a copy with the text destroyed and covered. " +
		"Without --terms, the terms are identified by the configured provider.",
	Args: cobra.ExactArgs(1),
	RunE: runRedact,
}

func init() {
	f := redactCmd.Flags()
	f.StringSliceVar(&flagTerms, "terms", nil, "Redaction terms (exact, case-insensitive); skips identification")
	f.StringSliceVar(&flagAddTerms, "add-terms", nil, "Extra terms merged with identified ones")
	f.BoolVar(&flagNoIdentify, "no-identify", false, "Never call the identification provider (requires --terms)")
	f.StringVarP(&flagOut, "output", "o", "", "Output file path")
	f.StringSliceVar(&flagLangs, "langs", nil, "OCR language hints (e.g. eng,deu)")
	f.IntVar(&flagParallel, "parallel", 0, "Concurrent page workers")
	f.StringVar(&flagProvider, "provider", "", "Identification provider (claude-cli, anthropic)")
	f.StringVar(&flagModel, "model", "", "Identification model override")
	f.StringVar(&flagPlaceholder, "placeholder", "", "Replacement text for flat-text documents")
	f.BoolVar(&flagVerbose, "verbose", false, "Debug logging")
}

func runRedact(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(&cfg)

	if flagNoIdentify && len(flagTerms) == 0 {
		return errors.New("--no-identify requires --terms")
	}

	level := observability.LevelInfo
	if flagVerbose {
		level = observability.LevelDebug
	}
	log := observability.NewLogger(cmd.ErrOrStderr(), level)

	ctx := cmd.Context()
	ocrEngine := tesseract.New()

	list := terms.Normalize(flagTerms)
	if len(list) == 0 {
		identified, err := identifyTerms(cmd, inputPath, cfg, log)
		if err != nil {
			return err
		}
		list = identified
	}
	list = list.Merge(flagAddTerms)

	outPath := flagOut
	if outPath == "" {
		ext := filepath.Ext(inputPath)
		outPath = strings.TrimSuffix(inputPath, ext) + cfg.OutputSuffix + ext
	}

	res, err := engine.Redact(ctx, inputPath, list,
		engine.WithOCR(ocrEngine),
		engine.WithLanguages(cfg.Languages...),
		engine.WithDPI(cfg.DPI),
		engine.WithParallelism(cfg.Parallelism),
		engine.WithPlaceholder(cfg.Placeholder),
		engine.WithOutput(outPath),
		engine.WithLogger(log),
	)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), res)
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if len(flagLangs) > 0 {
		cfg.Languages = flagLangs
	}
	if flagParallel > 0 {
		cfg.Parallelism = flagParallel
	}
	if flagPlaceholder != "" {
		cfg.Placeholder = flagPlaceholder
	}
}

// identifyTerms extracts the document text and asks the configured provider
// for the client-identifying terms it contains.
func identifyTerms(cmd *cobra.Command, inputPath string, cfg config.Config, log observability.Logger) (terms.List, error) {
	identifier, err := terms.NewIdentifier(cfg.Provider, cfg.Model)
	if err != nil {
		return nil, err
	}
	text, err := engine.ExtractText(cmd.Context(), inputPath,
		engine.WithOCR(tesseract.New()),
		engine.WithLanguages(cfg.Languages...),
		engine.WithDPI(cfg.DPI),
		engine.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	log.Info("identifying terms", observability.String("provider", identifier.Name()))
	raw, err := identifier.Identify(cmd.Context(), text)
	if err != nil {
		return nil, fmt.Errorf("identify terms: %w", err)
	}
	list := terms.Normalize(raw)
	log.Info("terms identified", observability.Int("count", len(list)))
	return list, nil
}

func printReport(w io.Writer, res *engine.Result) {
	fmt.Fprintf(w, "Input:  %s\n", res.InputPath)
	fmt.Fprintf(w, "Output: %s\n", res.OutputPath)
	if len(res.Terms) > 0 {
		fmt.Fprintf(w, "Terms:  %s\n", strings.Join(res.Terms, ", "))
	}
	for _, p := range res.Pages {
		note := ""
		if p.Ocr {
			note = " (ocr)"
		}
		fmt.Fprintf(w, "  page %d [%s]%s: %d\n", p.Page, p.Kind, note, p.Occurrences)
	}
	if res.NoMatches() {
		fmt.Fprintln(w, "No matches found; output is an unredacted copy.")
		return
	}
	fmt.Fprintf(w, "Redacted %d occurrence(s).\n", res.Total)
}
