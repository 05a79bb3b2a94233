package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matchbaan/match-cli/internal/pipeline"
	"github.com/matchbaan/match-cli/internal/resilience"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf> [pdf...]",
	Short: "Upload CV PDFs and run the processing pipeline",
	Long:  "Reads local PDF files, creates a candidate per file, and runs the full pipeline: text extraction, field extraction with duplicate detection, profile summary, embedding, geocoding.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		if len(args) == 1 {
			return ingestOne(ctx, env, args[0])
		}

		// Multiple files follow batch semantics: per-file errors are counted
		// and reported, not fatal to the rest of the batch.
		res := &pipeline.BatchResult{}
		delay := time.Duration(cfg.Pipeline.BulkDelayMs) * time.Millisecond
		for i, path := range args {
			if i > 0 && delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			data, err := os.ReadFile(path)
			if err != nil {
				res.Failed++
				res.Errors = append(res.Errors, path+": "+err.Error())
				continue
			}

			c, err := env.Pipeline.Ingest(ctx, filepath.Base(path), data)
			var dup *resilience.DuplicateError
			switch {
			case err == nil:
				res.Processed++
				zap.L().Info("candidate ingested",
					zap.String("file", path),
					zap.Int64("candidate_id", c.ID))
			case errors.As(err, &dup):
				res.Duplicates++
				res.Errors = append(res.Errors, path+": "+err.Error())
				zap.L().Warn("duplicate candidate skipped",
					zap.String("file", path),
					zap.Int64("existing_id", dup.ExistingID))
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				res.Failed++
				res.Errors = append(res.Errors, path+": "+err.Error())
				zap.L().Error("ingest failed", zap.String("file", path), zap.Error(err))
			}
		}

		return printJSON(res)
	},
}

// ingestOne processes a single upload and prints the resulting candidate.
// The error is returned as-is so a duplicate or failed pipeline exits
// non-zero with the Dutch message.
func ingestOne(ctx context.Context, env *pipelineEnv, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}

	c, procErr := env.Pipeline.Ingest(ctx, filepath.Base(path), data)
	if c != nil {
		if err := printJSON(c); err != nil {
			return err
		}
	}
	return procErr
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
