package model

import "time"

// CiteCheckReport is the complete output of the citecheck step
type CiteCheckReport struct {
	Project     string        `json:"project"`
	GeneratedAt time.Time     `json:"generated_at"`
	Briefs      []BriefResult `json:"briefs"`
}

// BriefResult holds the verification results for one brief
type BriefResult struct {
	Brief         string              `json:"brief"`
	Extracted     int                 `json:"extracted"` // Assertions extracted
	Unextractable bool                `json:"unextractable,omitempty"`
	Unresolved    []string            `json:"unresolved,omitempty"` // Citations flagged for human review
	Assertions    []CitationAssertion `json:"assertions"`
}

// SeverityCounts tallies outcomes for a summary line
type SeverityCounts struct {
	Verified    int `json:"verified"`
	Critical    int `json:"critical"`
	Significant int `json:"significant"`
	Moderate    int `json:"moderate"`
	Minor       int `json:"minor"`
	Unsupported int `json:"unsupported"`
	Unchecked   int `json:"unchecked"`
}

// Count tallies the outcomes attached to a brief's assertions
func (b *BriefResult) Count() SeverityCounts {
	var c SeverityCounts
	for _, a := range b.Assertions {
		o := a.Outcome
		if o == nil {
			c.Unchecked++
			continue
		}
		switch o.Status {
		case StatusVerified:
			c.Verified++
		case StatusUnsupported:
			c.Unsupported++
		case StatusInaccurate:
			switch o.Severity {
			case SeverityCritical:
				c.Critical++
			case SeveritySignificant:
				c.Significant++
			case SeverityModerate:
				c.Moderate++
			default:
				c.Minor++
			}
		default:
			c.Unchecked++
		}
	}
	return c
}

// Errors returns the total number of non-verified, non-unchecked outcomes
func (c SeverityCounts) Errors() int {
	return c.Critical + c.Significant + c.Moderate + c.Minor + c.Unsupported
}
