package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vista360/internal/cache"
	"github.com/sells-group/vista360/internal/metrics"
	"github.com/sells-group/vista360/internal/model"
)

type stubResults struct {
	profiles  []model.AnalyzedProfile
	listCalls int
	err       error
}

func (s *stubResults) ListResults(context.Context) ([]model.AnalyzedProfile, error) {
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.profiles, nil
}

func (s *stubResults) GetResult(_ context.Context, identifier string) (*model.AnalyzedProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.profiles {
		if p.Identifier == identifier {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *stubResults) ActiveSet(context.Context) (*model.PublishedSet, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.profiles == nil {
		return nil, nil
	}
	return &model.PublishedSet{Version: "v1", Count: len(s.profiles)}, nil
}

func profile(id, name, city string, sources ...model.SourceTag) model.AnalyzedProfile {
	p := model.NewConsolidatedProfile(id)
	p.DisplayName = name
	p.City = city
	for _, s := range sources {
		p.AddSource(s)
	}
	return model.NewAnalyzedProfile(p, "análisis "+id)
}

func sampleProfiles() []model.AnalyzedProfile {
	return []model.AnalyzedProfile{
		profile("100", "José Pérez", "Bogotá", model.SourcePolicyCRM, model.SourceMultiPolicyCRM, model.SourceLeadCRM),
		profile("200", "Ana Gómez", "Medellín", model.SourcePolicyCRM, model.SourceLeadCRM),
		profile("300", "Luis Ángel", "Bogotá", model.SourceLeadCRM),
		profile("400", "", "", model.SourceMultiPolicyCRM),
	}
}

func TestService_Profiles_CachesList(t *testing.T) {
	ctx := context.Background()
	rs := &stubResults{profiles: sampleProfiles()}
	rec := metrics.New()
	svc := NewService(rs, cache.NewMemory(4, time.Minute), rec)

	first, err := svc.Profiles(ctx)
	require.NoError(t, err)
	second, err := svc.Profiles(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, rs.listCalls)
	assert.Equal(t, first, second)

	n, err := testutil.GatherAndCount(rec.Registry(), "vista360_cache_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one hit and one miss series")
}

func TestService_Profiles_NoCache(t *testing.T) {
	ctx := context.Background()
	rs := &stubResults{profiles: sampleProfiles()}
	svc := NewService(rs, nil, nil)

	_, err := svc.Profiles(ctx)
	require.NoError(t, err)
	_, err = svc.Profiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.listCalls)
}

func TestService_NoData(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&stubResults{}, nil, nil)

	_, err := svc.Profiles(ctx)
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, "no data: run the batch first (vista360 analyze)", ErrNoData.Error())

	_, err = svc.Profile(ctx, "100")
	require.ErrorIs(t, err, ErrNoData)

	_, err = svc.Overview(ctx)
	require.ErrorIs(t, err, ErrNoData)
}

func TestService_EmptyPublishedSetIsNoData(t *testing.T) {
	svc := NewService(&stubResults{profiles: []model.AnalyzedProfile{}}, nil, nil)
	_, err := svc.Profiles(context.Background())
	require.ErrorIs(t, err, ErrNoData)
}

func TestService_StoreError(t *testing.T) {
	svc := NewService(&stubResults{err: errors.New("connection refused")}, nil, nil)
	_, err := svc.Profiles(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "dashboard: list results")
}

func TestService_Profile(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&stubResults{profiles: sampleProfiles()}, nil, nil)

	p, err := svc.Profile(ctx, "200")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Ana Gómez", p.DisplayName)

	p, err = svc.Profile(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestService_Search(t *testing.T) {
	svc := NewService(&stubResults{profiles: sampleProfiles()}, nil, nil)
	got, err := svc.Search(context.Background(), "jose")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100", got[0].Identifier)
}

func TestService_Overview(t *testing.T) {
	svc := NewService(&stubResults{profiles: sampleProfiles()}, nil, nil)
	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, ov.Total)
	require.NotNil(t, ov.Set)
	assert.Equal(t, "v1", ov.Set.Version)
}
