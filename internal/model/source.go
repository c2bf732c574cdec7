package model

// SourceTag names the upstream CRM a record came from.
type SourceTag string

const (
	SourcePolicyCRM      SourceTag = "CENTRA"
	SourceMultiPolicyCRM SourceTag = "FLOW360"
	SourceLeadCRM        SourceTag = "GESTOR_LEADS"
)

// SourceKind identifies the shape of a source variant. Kinds have a fixed
// evaluation order: policy, multi_policy, lead.
type SourceKind string

const (
	KindPolicy      SourceKind = "policy"       // at most one record per customer
	KindMultiPolicy SourceKind = "multi_policy" // one record per policy
	KindLead        SourceKind = "lead"         // one record per lead
)

// Rank returns the evaluation position of the kind, or -1 when unknown.
func (k SourceKind) Rank() int {
	switch k {
	case KindPolicy:
		return 0
	case KindMultiPolicy:
		return 1
	case KindLead:
		return 2
	default:
		return -1
	}
}

// Valid reports whether k is one of the known kinds.
func (k SourceKind) Valid() bool {
	return k.Rank() >= 0
}

// SourceRecord is a single upstream document tagged with the variant it
// belongs to. Fields have already passed through the source's coercion rules.
type SourceRecord struct {
	Source SourceTag  `json:"source"`
	Kind   SourceKind `json:"kind"`
	Fields Document   `json:"fields"`
}
