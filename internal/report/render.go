// Package report renders cite-check results as markdown for humans and
// keeps the JSON form as the machine-readable record.
package report

import (
	"fmt"
	"strings"

	"github.com/markwbennett/brief-analyzer/internal/model"
)

// Markdown renders the full CITECHECK.md text
func Markdown(r *model.CiteCheckReport) string {
	var b strings.Builder

	b.WriteString("# Cite-Check Report\n\n")
	if r.Project != "" {
		fmt.Fprintf(&b, "Case: %s\n", r.Project)
	}
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04"))

	writeSummary(&b, r)
	writeErrors(&b, r)
	writeBriefs(&b, r)

	return b.String()
}

func writeSummary(b *strings.Builder, r *model.CiteCheckReport) {
	var total model.SeverityCounts
	assertions := 0
	for i := range r.Briefs {
		br := &r.Briefs[i]
		assertions += len(br.Assertions)
		c := br.Count()
		total.Verified += c.Verified
		total.Critical += c.Critical
		total.Significant += c.Significant
		total.Moderate += c.Moderate
		total.Minor += c.Minor
		total.Unsupported += c.Unsupported
		total.Unchecked += c.Unchecked
	}

	fmt.Fprintf(b, "**Summary**: %d briefs checked, %d assertions found. %d verified, %d errors, %d unchecked.\n\n",
		len(r.Briefs), assertions, total.Verified, total.Errors(), total.Unchecked)

	if total.Errors() > 0 {
		b.WriteString("| Severity | Count |\n|---|---|\n")
		for _, row := range []struct {
			label string
			n     int
		}{
			{"Critical", total.Critical},
			{"Significant", total.Significant},
			{"Moderate", total.Moderate},
			{"Minor", total.Minor},
			{"Unsupported", total.Unsupported},
		} {
			if row.n > 0 {
				fmt.Fprintf(b, "| %s | %d |\n", row.label, row.n)
			}
		}
		b.WriteString("\n")
	}
}

// writeErrors lists every non-verified outcome first, worst first, so the
// reader sees the problems before the inventory.
func writeErrors(b *strings.Builder, r *model.CiteCheckReport) {
	type entry struct {
		brief     string
		assertion *model.CitationAssertion
	}
	bySeverity := map[model.Severity][]entry{}
	var unsupported []entry

	for i := range r.Briefs {
		br := &r.Briefs[i]
		for j := range br.Assertions {
			a := &br.Assertions[j]
			if a.Outcome == nil {
				continue
			}
			switch a.Outcome.Status {
			case model.StatusInaccurate:
				bySeverity[a.Outcome.Severity] = append(bySeverity[a.Outcome.Severity], entry{br.Brief, a})
			case model.StatusUnsupported:
				unsupported = append(unsupported, entry{br.Brief, a})
			}
		}
	}

	order := []model.Severity{
		model.SeverityCritical, model.SeveritySignificant,
		model.SeverityModerate, model.SeverityMinor,
	}
	hasErrors := len(unsupported) > 0
	for _, sev := range order {
		hasErrors = hasErrors || len(bySeverity[sev]) > 0
	}
	if !hasErrors {
		return
	}

	b.WriteString("## Errors and Issues\n\n")
	writeEntry := func(e entry, label string) {
		a := e.assertion
		fmt.Fprintf(b, "### %s (%s, %s)\n", a.CiteText, e.brief, a.Locator)
		fmt.Fprintf(b, "- **Status**: %s\n", label)
		fmt.Fprintf(b, "- **Proposition**: %s\n", a.Proposition)
		if a.Outcome.Source != "" {
			fmt.Fprintf(b, "- **Source**: %s\n", a.Outcome.Source)
		}
		fmt.Fprintf(b, "- **Detail**: %s\n", a.Outcome.Detail)
		if a.Outcome.Escalated {
			b.WriteString("- Checked on escalation against the source the outcome names\n")
		}
		b.WriteString("\n")
	}
	for _, sev := range order {
		for _, e := range bySeverity[sev] {
			writeEntry(e, "inaccurate ("+string(sev)+")")
		}
	}
	for _, e := range unsupported {
		writeEntry(e, "unsupported")
	}
}

func writeBriefs(b *strings.Builder, r *model.CiteCheckReport) {
	b.WriteString("## Brief-by-Brief Results\n\n")
	for i := range r.Briefs {
		br := &r.Briefs[i]
		c := br.Count()

		marker := "OK"
		switch {
		case br.Unextractable:
			marker = "UNEXTRACTABLE"
		case c.Errors() > 0:
			marker = "ISSUES"
		case c.Unchecked > 0:
			marker = "PARTIAL"
		}
		fmt.Fprintf(b, "### %s [%s]\n\n", br.Brief, marker)
		fmt.Fprintf(b, "%d assertions: %d verified, %d errors, %d unchecked.\n\n",
			len(br.Assertions), c.Verified, c.Errors(), c.Unchecked)

		if len(br.Unresolved) > 0 {
			b.WriteString("Citations needing human review (could not be matched to one authority):\n")
			for _, u := range br.Unresolved {
				fmt.Fprintf(b, "- %s\n", u)
			}
			b.WriteString("\n")
		}

		if len(br.Assertions) > 0 {
			b.WriteString("| Citation | Location | Status |\n|---|---|---|\n")
			for j := range br.Assertions {
				a := &br.Assertions[j]
				status := "unchecked"
				if a.Outcome != nil {
					status = string(a.Outcome.Status)
					if a.Outcome.Status == model.StatusInaccurate {
						status += " (" + string(a.Outcome.Severity) + ")"
					}
				}
				fmt.Fprintf(b, "| %s | %s | %s |\n", a.CiteText, a.Locator, status)
			}
			b.WriteString("\n")
		}
	}
}
