package model

import "time"

// Placeholders used when a profile has no resolvable name or city.
const (
	UnknownName = "Sin nombre"
	UnknownCity = "Sin ciudad"
)

// ConsolidatedProfile is the merge of every source record for one customer.
type ConsolidatedProfile struct {
	Identifier         string      `json:"identifier"`
	DisplayName        string      `json:"display_name,omitempty"`
	City               string      `json:"city,omitempty"`
	Email              string      `json:"email,omitempty"`
	Sources            []SourceTag `json:"sources"`
	PolicyRecord       Document    `json:"policy_record,omitempty"`
	MultiPolicyRecords []Document  `json:"multi_policy_records"`
	LeadRecords        []Document  `json:"lead_records"`
}

// NewConsolidatedProfile returns an empty profile for identifier. Slices are
// non-nil so the serialized form is stable whether or not records exist.
func NewConsolidatedProfile(identifier string) *ConsolidatedProfile {
	return &ConsolidatedProfile{
		Identifier:         identifier,
		Sources:            []SourceTag{},
		MultiPolicyRecords: []Document{},
		LeadRecords:        []Document{},
	}
}

// Found reports whether at least one source contributed to the profile.
func (p *ConsolidatedProfile) Found() bool {
	return p != nil && len(p.Sources) > 0
}

// HasSource reports whether tag is among the contributing sources.
func (p *ConsolidatedProfile) HasSource(tag SourceTag) bool {
	for _, s := range p.Sources {
		if s == tag {
			return true
		}
	}
	return false
}

// AddSource appends tag unless it is already present.
func (p *ConsolidatedProfile) AddSource(tag SourceTag) {
	if !p.HasSource(tag) {
		p.Sources = append(p.Sources, tag)
	}
}

// AnalyzedProfile is the published, queryable result for one customer.
type AnalyzedProfile struct {
	Identifier      string              `json:"identifier"`
	DisplayName     string              `json:"display_name"`
	City            string              `json:"city"`
	Sources         []SourceTag         `json:"sources"`
	Narrative       string              `json:"narrative"`
	NarrativeFailed bool                `json:"narrative_failed,omitempty"`
	Profile         ConsolidatedProfile `json:"profile"`
}

// NewAnalyzedProfile builds the published form of p with the given narrative.
func NewAnalyzedProfile(p *ConsolidatedProfile, narrative string) AnalyzedProfile {
	name := p.DisplayName
	if name == "" {
		name = UnknownName
	}
	city := p.City
	if city == "" {
		city = UnknownCity
	}
	sources := make([]SourceTag, len(p.Sources))
	copy(sources, p.Sources)
	return AnalyzedProfile{
		Identifier:  p.Identifier,
		DisplayName: name,
		City:        city,
		Sources:     sources,
		Narrative:   narrative,
		Profile:     *p,
	}
}

// PublishedSet describes the active result collection.
type PublishedSet struct {
	Version     string    `json:"version"`
	PublishedAt time.Time `json:"published_at"`
	Count       int       `json:"count"`
}
