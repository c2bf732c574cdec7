package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/archive"
	"github.com/sells-group/vista360/internal/mapping"
	"github.com/sells-group/vista360/internal/metrics"
	"github.com/sells-group/vista360/internal/narrative"
	"github.com/sells-group/vista360/internal/pipeline"
	"github.com/sells-group/vista360/internal/resilience"
	"github.com/sells-group/vista360/internal/store"
	anthropicpkg "github.com/sells-group/vista360/pkg/anthropic"
)

var (
	analyzeLimit       int
	analyzeDryRun      bool
	analyzeMetricsFile string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Consolidate every customer, generate narratives and publish the result set",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		table, err := loadTable()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, table)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec := metrics.New()
		p, err := buildPipeline(ctx, st, table, rec)
		if err != nil {
			return err
		}

		res, runErr := p.RunFullAnalysis(ctx)
		if analyzeMetricsFile != "" {
			if err := prometheus.WriteToTextfile(analyzeMetricsFile, rec.Registry()); err != nil {
				zap.L().Warn("write metrics textfile", zap.String("path", analyzeMetricsFile), zap.Error(err))
			}
		}
		if runErr != nil {
			return runErr
		}

		out := cmd.OutOrStdout()
		if res.Set == nil {
			fmt.Fprintf(out, "dry run: %d profiles analyzed (%d discovered, %d skipped, %d degraded), nothing published\n",
				len(res.Results), res.Discovered, res.Skipped, res.Degraded)
			return nil
		}
		fmt.Fprintf(out, "published %s: %d profiles (%d discovered, %d skipped, %d degraded)\n",
			res.Set.Version, res.Set.Count, res.Discovered, res.Skipped, res.Degraded)
		if res.ArchiveKey != "" {
			fmt.Fprintf(out, "archived to s3://%s/%s\n", cfg.Archive.S3Bucket, res.ArchiveKey)
		}
		return nil
	},
}

// buildPipeline wires the narrative client, the optional archive and the
// batch options from configuration.
func buildPipeline(ctx context.Context, st store.Store, table *mapping.Table, rec *metrics.Recorder) (*pipeline.Pipeline, error) {
	var clientOpts []anthropicpkg.ClientOption
	if cfg.Anthropic.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key, clientOpts...)

	temperature := cfg.Narrative.Temperature
	gen := narrative.New(client, narrative.Config{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		Temperature:       &temperature,
		Timeout:           time.Duration(cfg.Narrative.TimeoutSecs) * time.Second,
		Retry:             resilience.FromRetryConfig(cfg.Narrative.MaxAttempts, cfg.Narrative.InitialBackoffMs, cfg.Narrative.MaxBackoffMs),
		RequestsPerSecond: cfg.Narrative.RequestsPerSecond,
	})

	limit := cfg.Batch.Limit
	if analyzeLimit >= 0 {
		limit = analyzeLimit
	}
	opts := pipeline.Options{
		Limit:            limit,
		Concurrency:      cfg.Batch.Concurrency,
		OnNarrativeError: cfg.Batch.OnNarrativeError,
		DryRun:           analyzeDryRun,
	}

	extra := []pipeline.Option{pipeline.WithMetrics(rec)}
	if cfg.Archive.S3Bucket != "" {
		arch, err := archive.New(ctx, archive.Config{
			Bucket:   cfg.Archive.S3Bucket,
			Prefix:   cfg.Archive.S3Prefix,
			Region:   cfg.Archive.Region,
			Endpoint: cfg.Archive.Endpoint,
		})
		if err != nil {
			return nil, eris.Wrap(err, "init archive")
		}
		extra = append(extra, pipeline.WithArchiver(arch))
	}
	return pipeline.New(st, st, table, gen, opts, extra...), nil
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", -1, "max identifiers to process after sorting; 0 means all (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "analyze without publishing the result set")
	analyzeCmd.Flags().StringVar(&analyzeMetricsFile, "metrics-textfile", "", "write run metrics in Prometheus text format to this path")
	rootCmd.AddCommand(analyzeCmd)
}
