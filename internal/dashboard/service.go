// Package dashboard is the read side of vista360: it serves the published
// result set to the HTTP API, the terminal browser and the exporter.
package dashboard

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vista360/internal/cache"
	"github.com/sells-group/vista360/internal/metrics"
	"github.com/sells-group/vista360/internal/model"
	"github.com/sells-group/vista360/internal/store"
)

// ErrNoData is returned when nothing has been published yet.
var ErrNoData = eris.New("no data: run the batch first (vista360 analyze)")

const listCacheKey = "results:list"

// Service reads the active result set through a cache.
type Service struct {
	results store.ResultReader
	cache   cache.Cache
	metrics *metrics.Recorder
}

// NewService creates a Service. A nil cache disables caching and a nil
// recorder disables metrics.
func NewService(results store.ResultReader, c cache.Cache, rec *metrics.Recorder) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{results: results, cache: c, metrics: rec}
}

// Profiles returns every published profile ordered by identifier, or
// ErrNoData when the set is empty.
func (s *Service) Profiles(ctx context.Context) ([]model.AnalyzedProfile, error) {
	if data, ok, err := s.cache.Get(ctx, listCacheKey); err != nil {
		zap.L().Warn("dashboard: cache read failed, loading from store", zap.Error(err))
	} else if ok {
		var cached []model.AnalyzedProfile
		if err := json.Unmarshal(data, &cached); err == nil {
			s.metrics.CacheLookup(true)
			return nonEmpty(cached)
		}
	}
	s.metrics.CacheLookup(false)

	profiles, err := s.results.ListResults(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: list results")
	}
	if data, err := json.Marshal(profiles); err == nil {
		if err := s.cache.Set(ctx, listCacheKey, data); err != nil {
			zap.L().Warn("dashboard: cache write failed", zap.Error(err))
		}
	}
	return nonEmpty(profiles)
}

// Profile returns one profile. It returns nil, nil when the identifier is not
// in the active set and ErrNoData when nothing is published.
func (s *Service) Profile(ctx context.Context, identifier string) (*model.AnalyzedProfile, error) {
	set, err := s.results.ActiveSet(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: active set")
	}
	if set == nil || set.Count == 0 {
		return nil, ErrNoData
	}
	p, err := s.results.GetResult(ctx, identifier)
	if err != nil {
		return nil, eris.Wrapf(err, "dashboard: get result %s", identifier)
	}
	return p, nil
}

// Search returns the published profiles matching query.
func (s *Service) Search(ctx context.Context, query string) ([]model.AnalyzedProfile, error) {
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(profiles, query), nil
}

// Overview is the summary plus the metadata of the active set.
type Overview struct {
	Summary
	Set *model.PublishedSet `json:"set,omitempty"`
}

// Overview summarizes the active set.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	set, err := s.results.ActiveSet(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: active set")
	}
	return &Overview{Summary: Summarize(profiles), Set: set}, nil
}

func nonEmpty(profiles []model.AnalyzedProfile) ([]model.AnalyzedProfile, error) {
	if len(profiles) == 0 {
		return nil, ErrNoData
	}
	return profiles, nil
}
