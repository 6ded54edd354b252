package report

import (
	"strings"
	"testing"
	"time"

	"github.com/markwbennett/brief-analyzer/internal/model"
)

func sampleReport() *model.CiteCheckReport {
	return &model.CiteCheckReport{
		Project:     "01-23-00456-CR",
		GeneratedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Briefs: []model.BriefResult{
			{
				Brief: "appellant_brief.txt",
				Assertions: []model.CitationAssertion{
					{
						CiteText:    "845 S.W.2d 874",
						Locator:     "section 2, paragraph 4",
						Proposition: "Four-factor test for admissibility",
						Outcome:     &model.VerificationOutcome{Status: model.StatusVerified},
					},
					{
						CiteText:    "871 S.W.2d 726",
						Locator:     "section 3, paragraph 1",
						Proposition: "Error preserved without objection",
						Outcome: &model.VerificationOutcome{
							Status:   model.StatusInaccurate,
							Severity: model.SeverityCritical,
							Detail:   "the opinion holds the opposite",
							Source:   "Highwarden v. State, 871 S.W.2d 726",
						},
					},
					{
						CiteText:    "999 S.W.2d 1",
						Locator:     "section 3, paragraph 5",
						Proposition: "Harmless error standard",
					},
				},
			},
			{
				Brief:      "state_brief.txt",
				Unresolved: []string{"2019 WL 1234567"},
				Assertions: []model.CitationAssertion{
					{
						CiteText:    "567 U.S. 460",
						Locator:     "section 1, paragraph 2",
						Proposition: "Mandatory life without parole for juveniles",
						Outcome: &model.VerificationOutcome{
							Status:    model.StatusUnsupported,
							Detail:    "needed source could not be resolved: Miller concurrence",
							Escalated: true,
						},
					},
				},
			},
		},
	}
}

func TestMarkdown_SummaryCountsAndSeverityTable(t *testing.T) {
	out := Markdown(sampleReport())

	if !strings.Contains(out, "2 briefs checked, 4 assertions found. 1 verified, 2 errors, 1 unchecked.") {
		t.Errorf("summary line wrong:\n%s", out)
	}
	if !strings.Contains(out, "| Critical | 1 |") {
		t.Errorf("expected critical row in severity table:\n%s", out)
	}
	if !strings.Contains(out, "| Unsupported | 1 |") {
		t.Errorf("expected unsupported row in severity table:\n%s", out)
	}
	if strings.Contains(out, "| Minor |") {
		t.Errorf("zero-count severities should be omitted:\n%s", out)
	}
}

func TestMarkdown_ErrorsWorstFirst(t *testing.T) {
	out := Markdown(sampleReport())

	critical := strings.Index(out, "### 871 S.W.2d 726")
	unsupported := strings.Index(out, "### 567 U.S. 460")
	if critical < 0 || unsupported < 0 {
		t.Fatalf("missing error entries:\n%s", out)
	}
	if critical > unsupported {
		t.Errorf("critical entry should appear before unsupported")
	}
	if !strings.Contains(out, "inaccurate (critical)") {
		t.Errorf("expected severity label on inaccurate entry")
	}
	if !strings.Contains(out, "Checked on escalation") {
		t.Errorf("expected escalation note on escalated outcome")
	}
}

func TestMarkdown_BriefMarkers(t *testing.T) {
	out := Markdown(sampleReport())

	if !strings.Contains(out, "### appellant_brief.txt [ISSUES]") {
		t.Errorf("expected ISSUES marker:\n%s", out)
	}
	if !strings.Contains(out, "### state_brief.txt [ISSUES]") {
		t.Errorf("expected ISSUES marker for unsupported-only brief:\n%s", out)
	}
	if !strings.Contains(out, "- 2019 WL 1234567") {
		t.Errorf("unresolved citation should be listed for human review")
	}
	if !strings.Contains(out, "| 999 S.W.2d 1 | section 3, paragraph 5 | unchecked |") {
		t.Errorf("assertion without outcome should render as unchecked:\n%s", out)
	}
}

func TestMarkdown_CleanBrief(t *testing.T) {
	r := &model.CiteCheckReport{
		GeneratedAt: time.Now(),
		Briefs: []model.BriefResult{
			{
				Brief: "reply_brief.txt",
				Assertions: []model.CitationAssertion{
					{
						CiteText: "845 S.W.2d 874",
						Locator:  "section 1, paragraph 1",
						Outcome:  &model.VerificationOutcome{Status: model.StatusVerified},
					},
				},
			},
		},
	}
	out := Markdown(r)

	if !strings.Contains(out, "### reply_brief.txt [OK]") {
		t.Errorf("expected OK marker:\n%s", out)
	}
	if strings.Contains(out, "## Errors and Issues") {
		t.Errorf("no errors section expected for a clean report:\n%s", out)
	}
}

func TestMarkdown_UnextractableMarker(t *testing.T) {
	r := &model.CiteCheckReport{
		GeneratedAt: time.Now(),
		Briefs:      []model.BriefResult{{Brief: "scan.txt", Unextractable: true}},
	}
	out := Markdown(r)
	if !strings.Contains(out, "### scan.txt [UNEXTRACTABLE]") {
		t.Errorf("expected UNEXTRACTABLE marker:\n%s", out)
	}
}
