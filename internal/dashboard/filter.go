package dashboard

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/vista360/internal/model"
)

// fold lowercases s and strips diacritics so "Bogotá" matches "bogota".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Filter returns the profiles whose display name or identifier contains
// query, ignoring case and accents. An empty query returns profiles unchanged.
func Filter(profiles []model.AnalyzedProfile, query string) []model.AnalyzedProfile {
	q := fold(query)
	if q == "" {
		return profiles
	}
	out := make([]model.AnalyzedProfile, 0, len(profiles))
	for _, p := range profiles {
		if strings.Contains(fold(p.DisplayName), q) || strings.Contains(fold(p.Identifier), q) {
			out = append(out, p)
		}
	}
	return out
}

// Summary holds the headline counts of a result set.
type Summary struct {
	Total       int      `json:"total"`
	MultiSource int      `json:"multi_source"`
	AllSources  int      `json:"all_sources"`
	Cities      int      `json:"cities"`
	CityNames   []string `json:"city_names"`
}

// Summarize counts profiles present in more than one source, profiles present
// in all three, and distinct cities. The placeholder city is not counted.
func Summarize(profiles []model.AnalyzedProfile) Summary {
	s := Summary{Total: len(profiles), CityNames: []string{}}
	cities := make(map[string]bool)
	for _, p := range profiles {
		if len(p.Sources) > 1 {
			s.MultiSource++
		}
		if len(p.Sources) >= 3 {
			s.AllSources++
		}
		if p.City != "" && p.City != model.UnknownCity && !cities[p.City] {
			cities[p.City] = true
			s.CityNames = append(s.CityNames, p.City)
		}
	}
	sort.Strings(s.CityNames)
	s.Cities = len(s.CityNames)
	return s
}

// Band classifies a lead's closing probability.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// ProbabilityBand maps a 0-100 closing probability to a band.
func ProbabilityBand(probability float64) Band {
	switch {
	case probability >= 70:
		return BandHigh
	case probability >= 40:
		return BandMedium
	default:
		return BandLow
	}
}
