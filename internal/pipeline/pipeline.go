// Package pipeline runs the full analysis: discover every identifier,
// consolidate and narrate each one, then publish the result set.
package pipeline

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vista360/internal/config"
	"github.com/sells-group/vista360/internal/consolidate"
	"github.com/sells-group/vista360/internal/mapping"
	"github.com/sells-group/vista360/internal/metrics"
	"github.com/sells-group/vista360/internal/model"
	"github.com/sells-group/vista360/internal/narrative"
	"github.com/sells-group/vista360/internal/store"
)

// Narrator produces the narrative for a profile.
type Narrator interface {
	Generate(ctx context.Context, p *model.ConsolidatedProfile) (string, error)
}

// Archiver keeps a copy of each published set outside the database.
type Archiver interface {
	Archive(ctx context.Context, set *model.PublishedSet, results []model.AnalyzedProfile) (string, error)
}

// Options controls a run.
type Options struct {
	// Limit caps the sorted identifier list. <= 0 processes every identifier.
	Limit       int
	Concurrency int
	// OnNarrativeError is config.OnErrorDegrade or config.OnErrorAbort.
	OnNarrativeError string
	// DryRun computes results without publishing them.
	DryRun bool
}

// RunResult summarizes a finished run.
type RunResult struct {
	// Results are ordered by identifier.
	Results    []model.AnalyzedProfile
	Discovered int
	Skipped    int
	Degraded   int
	// Set is nil on a dry run.
	Set        *model.PublishedSet
	ArchiveKey string
}

// Pipeline wires the consolidator, the narrator and the result writer.
type Pipeline struct {
	reader       store.SourceReader
	writer       store.ResultWriter
	table        *mapping.Table
	consolidator *consolidate.Consolidator
	narrator     Narrator
	archiver     Archiver
	metrics      *metrics.Recorder
	opts         Options
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithArchiver uploads every published set through a.
func WithArchiver(a Archiver) Option {
	return func(p *Pipeline) { p.archiver = a }
}

// WithMetrics records run metrics in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = r }
}

// New creates a Pipeline.
func New(reader store.SourceReader, writer store.ResultWriter, table *mapping.Table, narrator Narrator, opts Options, extra ...Option) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.OnNarrativeError == "" {
		opts.OnNarrativeError = config.OnErrorDegrade
	}
	p := &Pipeline{
		reader:       reader,
		writer:       writer,
		table:        table,
		consolidator: consolidate.New(reader, table),
		narrator:     narrator,
		opts:         opts,
	}
	for _, o := range extra {
		o(p)
	}
	return p
}

// Discover returns the sorted union of identifiers across all sources.
func (p *Pipeline) Discover(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, src := range p.table.Sources {
		keys, err := p.reader.DistinctKeys(ctx, src.Collection, src.KeyField)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: discover %s", src.Tag)
		}
		for _, k := range keys {
			if k != "" {
				seen[k] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for k := range seen {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids, nil
}

// RunFullAnalysis processes every discovered identifier and replaces the
// published result set. On error or cancellation nothing is published and
// the previous set stays active.
func (p *Pipeline) RunFullAnalysis(ctx context.Context) (*RunResult, error) {
	res, err := p.run(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		p.metrics.Run(metrics.RunCancelled)
	case err != nil:
		p.metrics.Run(metrics.RunFailed)
	case p.opts.DryRun:
		p.metrics.Run(metrics.RunDryRun)
	default:
		p.metrics.Run(metrics.RunPublished)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context) (*RunResult, error) {
	ids, err := p.Discover(ctx)
	if err != nil {
		return nil, err
	}
	discovered := len(ids)
	if p.opts.Limit > 0 && len(ids) > p.opts.Limit {
		ids = ids[:p.opts.Limit]
	}

	zap.L().Info("pipeline: starting full analysis",
		zap.String("mapping_version", p.table.Version),
		zap.Int("discovered", discovered),
		zap.Int("processing", len(ids)),
		zap.Int("concurrency", p.opts.Concurrency),
		zap.String("on_narrative_error", p.opts.OnNarrativeError),
	)

	slots := make([]*model.AnalyzedProfile, len(ids))
	var skipped, degraded atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log := zap.L().With(zap.String("identifier", id))

			profile, err := p.consolidator.Consolidate(gctx, id)
			if err != nil {
				return err
			}
			if !profile.Found() {
				skipped.Add(1)
				p.metrics.Profile(metrics.OutcomeSkipped)
				log.Debug("pipeline: no source data, skipping")
				return nil
			}

			start := time.Now()
			text, err := p.narrator.Generate(gctx, profile)
			p.metrics.Narrative(time.Since(start), err)

			failed := false
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if p.opts.OnNarrativeError == config.OnErrorAbort {
					return eris.Wrapf(err, "pipeline: narrative for %s", id)
				}
				log.Error("pipeline: narrative failed, storing fallback text", zap.Error(err))
				text = narrative.FailureText
				failed = true
				degraded.Add(1)
				p.metrics.Profile(metrics.OutcomeDegraded)
			} else {
				p.metrics.Profile(metrics.OutcomeAnalyzed)
			}

			result := model.NewAnalyzedProfile(profile, text)
			result.NarrativeFailed = failed
			slots[i] = &result
			log.Info("pipeline: profile analyzed",
				zap.Strings("sources", sourceNames(profile.Sources)),
				zap.Bool("narrative_failed", failed),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run aborted")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: run cancelled")
	}

	out := &RunResult{
		Results:    make([]model.AnalyzedProfile, 0, len(ids)),
		Discovered: discovered,
		Skipped:    int(skipped.Load()),
		Degraded:   int(degraded.Load()),
	}
	for _, r := range slots {
		if r != nil {
			out.Results = append(out.Results, *r)
		}
	}

	if p.opts.DryRun {
		zap.L().Info("pipeline: dry run, nothing published", zap.Int("results", len(out.Results)))
		return out, nil
	}

	set, err := p.writer.PublishResults(ctx, out.Results)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: publish")
	}
	out.Set = set
	p.metrics.Published(set.PublishedAt, set.Count)

	if p.archiver != nil {
		key, err := p.archiver.Archive(ctx, set, out.Results)
		if err != nil {
			zap.L().Warn("pipeline: archive failed, result set is still published",
				zap.String("version", set.Version),
				zap.Error(err),
			)
		}
		out.ArchiveKey = key
	}

	zap.L().Info("pipeline: result set published",
		zap.String("version", set.Version),
		zap.Int("count", set.Count),
		zap.Int("skipped", out.Skipped),
		zap.Int("degraded", out.Degraded),
	)
	return out, nil
}

func sourceNames(tags []model.SourceTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
