package model

import "fmt"

// CitationKey is the normalized volume/reporter/page triple that addresses an
// authority. Companion cases can share a key; the disambiguator sorts that out.
type CitationKey struct {
	Volume   string `json:"volume"`
	Reporter string `json:"reporter"`
	Page     string `json:"page"`
}

func (k CitationKey) String() string {
	if k.Volume == "" {
		// Westlaw keys carry no volume
		return fmt.Sprintf("%s %s", k.Reporter, k.Page)
	}
	return fmt.Sprintf("%s %s %s", k.Volume, k.Reporter, k.Page)
}

// IsZero reports whether no components were parsed
func (k CitationKey) IsZero() bool {
	return k.Volume == "" && k.Reporter == "" && k.Page == ""
}

// Citation is a parsed legal citation as it appears in a brief
type Citation struct {
	CaseName string      `json:"case_name,omitempty"` // "Theus v. State"
	Key      CitationKey `json:"key"`
	PinCite  string      `json:"pin_cite,omitempty"` // "at 878"
	Court    string      `json:"court,omitempty"`    // "Tex. Crim. App."
	Year     string      `json:"year,omitempty"`
	WLNumber string      `json:"wl_number,omitempty"` // Westlaw number for unpublished opinions
}

// PurposeTag classifies why the brief cites the authority
type PurposeTag string

const (
	PurposeSupporting PurposeTag = "supporting"
	PurposeExtending  PurposeTag = "extending"
	PurposeCritiquing PurposeTag = "critiquing"
	PurposeBackground PurposeTag = "background"
)

// CitationAssertion is one distinct use of a citation in a brief paragraph.
// Immutable after extraction except for the attached outcome.
type CitationAssertion struct {
	Brief       string      `json:"brief"`             // Source brief identifier (filename)
	Locator     string      `json:"locator"`           // Paragraph or page locator within the brief
	CiteText    string      `json:"cite_text"`         // Citation as written
	Key         CitationKey `json:"key"`               // Normalized citation key
	CaseName    string      `json:"case_name"`         // Case name hint for disambiguation
	Purpose     PurposeTag  `json:"purpose"`           // Why the brief cites it
	Context     string      `json:"context"`           // One-sentence argument context
	Proposition string      `json:"proposition"`       // What the brief claims the source says
	Quotation   string      `json:"quotation,omitempty"` // Direct quote attributed to the source, if any

	Outcome *VerificationOutcome `json:"outcome,omitempty"`
}
