package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/feichai0017/paper-extractor/internal/agent"
	"github.com/feichai0017/paper-extractor/internal/pipeline"
	"github.com/feichai0017/paper-extractor/internal/utils/validator"
	"github.com/feichai0017/paper-extractor/pkg/converters"
	"github.com/feichai0017/paper-extractor/pkg/logger"
)

var (
	runInput       string
	runOutput      string
	runJSONDir     string
	runConcurrency int
	runAppend      bool
	runValidate    bool
)

var runCmd = &cobra.Command{
	Use:   "run [pdf...]",
	Short: "Extract records from PDFs into a TSV file",
	Long: `Processes every PDF in --input (and any PDFs given as arguments) and
writes one line per paper to --output. Papers where no page yields a record
are skipped.

Examples:
  extractor run --input ./papers --output paper.tsv
  extractor run --input ./papers --json-dir ./json --concurrency 2
  extractor run a.pdf b.pdf --append`,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := collectPDFs(runInput, args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no PDF files found")
		}
		if runConcurrency > 0 {
			pipelineCfg.Concurrency = runConcurrency
		}
		return runExtraction(cmd.Context(), paths)
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "directory of PDFs to process")
	runCmd.Flags().StringVar(&runOutput, "output", "paper.tsv", "TSV file to write")
	runCmd.Flags().StringVar(&runJSONDir, "json-dir", "", "also write one JSON result per PDF into this directory")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "documents processed at once (default from config)")
	runCmd.Flags().BoolVar(&runAppend, "append", false, "append to --output instead of truncating it")
	runCmd.Flags().BoolVar(&runValidate, "validate", false, "skip PDFs that fail structural validation")
	rootCmd.AddCommand(runCmd)
}

// collectPDFs lists the .pdf files directly inside dir, sorted by name,
// followed by any extra paths.
func collectPDFs(dir string, extra []string) ([]string, error) {
	var paths []string
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read input directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
		sort.Strings(paths)
	}
	return append(paths, extra...), nil
}

func runExtraction(ctx context.Context, paths []string) error {
	if runValidate {
		paths = validPDFs(paths)
	}

	factory, err := agent.NewProcessorFactory(log, pipelineCfg)
	if err != nil {
		return err
	}
	extraction, err := factory.Build(ctx)
	if err != nil {
		return err
	}
	defer extraction.Close()

	var out *converters.TSVWriter
	if runAppend {
		out, err = converters.AppendTSVFile(runOutput)
	} else {
		out, err = converters.CreateTSVFile(runOutput)
	}
	if err != nil {
		return err
	}
	defer out.Close()

	if runJSONDir != "" {
		if err := os.MkdirAll(runJSONDir, 0o755); err != nil {
			return fmt.Errorf("failed to create json directory: %w", err)
		}
	}

	start := time.Now()
	stats, err := extraction.Pipeline.RunBatch(ctx, paths, pipelineCfg.Concurrency, newSink(out, runJSONDir))

	log.Info("Batch finished",
		logger.Int("documents", len(paths)),
		logger.Int("extracted", stats.Extracted),
		logger.Int("empty", stats.Empty),
		logger.Int("unreadable", stats.Unreadable),
		logger.Int("failed", stats.Failed),
		logger.String("output", runOutput),
		logger.Duration("elapsed", time.Since(start)),
	)
	return err
}

// newSink writes non-empty records to out and, when jsonDir is set, every
// result as JSON.
func newSink(out *converters.TSVWriter, jsonDir string) pipeline.Sink {
	converter := converters.NewJSONConverter()
	return func(ctx context.Context, result *pipeline.Result) error {
		if jsonDir != "" {
			doc, err := converter.Convert("", result, 0)
			if err != nil {
				return err
			}
			if err := writeJSON(jsonDir, result.Path, doc); err != nil {
				return err
			}
		}

		if result.Empty() {
			log.Warn("No record extracted", logger.String("document", result.Path))
			return nil
		}
		if err := out.Write(*result.Record); err != nil {
			return err
		}
		log.Info("Record written",
			logger.String("document", result.Path),
			logger.String("title", result.Record.Title),
		)
		return nil
	}
}

func writeJSON(dir, pdfPath string, doc *converters.ProcessedDocument) error {
	name := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath)) + ".json"
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write json result: %w", err)
	}
	return nil
}

func validPDFs(paths []string) []string {
	v := validator.NewDocumentValidator(log, nil)
	kept := paths[:0:0]
	for _, p := range paths {
		res, err := v.ValidatePath(p)
		if err != nil {
			log.Warn("Skipping unreadable file", logger.String("document", p), logger.Error(err))
			continue
		}
		if !res.IsValid {
			log.Warn("Skipping invalid PDF", logger.String("document", p), logger.Any("errors", res.Errors))
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
