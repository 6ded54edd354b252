package model

// OutcomeStatus is the terminal classification of a verified assertion
type OutcomeStatus string

const (
	StatusVerified    OutcomeStatus = "verified"
	StatusInaccurate  OutcomeStatus = "inaccurate"
	StatusUnsupported OutcomeStatus = "unsupported"
	StatusNeedsSource OutcomeStatus = "needs_source"
)

// Severity grades an inaccurate outcome
type Severity string

const (
	SeverityMinor       Severity = "minor"
	SeverityModerate    Severity = "moderate"
	SeveritySignificant Severity = "significant"
	SeverityCritical    Severity = "critical"
)

// VerificationOutcome is produced once per assertion per verification pass
type VerificationOutcome struct {
	Status   OutcomeStatus `json:"status"`
	Severity Severity      `json:"severity,omitempty"` // Set when Status is inaccurate
	Detail   string        `json:"detail,omitempty"`
	Source   string        `json:"source,omitempty"` // Label of the source checked against

	// NeededKeys lists the citations of the documents actually required,
	// populated only for needs_source outcomes.
	NeededKeys []string `json:"needed_keys,omitempty"`

	Escalated bool `json:"escalated,omitempty"` // True when produced by the second pass
}

// rank orders outcomes from most to least severe:
// critical > significant > moderate > minor > unsupported > needs_source > verified.
func (o *VerificationOutcome) rank() int {
	switch o.Status {
	case StatusInaccurate:
		switch o.Severity {
		case SeverityCritical:
			return 6
		case SeveritySignificant:
			return 5
		case SeverityModerate:
			return 4
		default:
			return 3
		}
	case StatusUnsupported:
		return 2
	case StatusNeedsSource:
		return 1
	default:
		return 0
	}
}

// MoreSevere returns the more severe of two outcomes. Used when the same
// assertion was independently checked against more than one source.
func MoreSevere(a, b *VerificationOutcome) *VerificationOutcome {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.rank() > a.rank() {
		return b
	}
	return a
}
