package verify

import (
	"fmt"
	"strings"

	"github.com/markwbennett/brief-analyzer/internal/model"
)

const extractSystem = `You are a legal citation extractor. You read appellate briefs and extract every case citation together with what the brief claims about it. You output only JSON.`

const extractPromptFormat = `Read this brief section and extract every case citation with its context.

For each citation, output a JSON object with these fields:
- case_name: the case name as cited (e.g., "Theus v. State")
- volume: reporter volume number (e.g., "845")
- reporter: reporter abbreviation (e.g., "S.W.2d", "U.S.", "F.3d", "WL")
- page: starting page or WL number (e.g., "874", "3127402")
- cite_text: the citation exactly as written in the brief
- purpose: one of "supporting", "extending", "critiquing", "background"
- context: one sentence describing the argument the citation serves
- proposition: what the brief claims this case says (1-2 sentences)
- quotation: any direct quotation attributed to the case, verbatim from the brief; empty string if none
- locator: approximate location in the brief (page number or section heading)

Output ONLY a JSON array. No commentary, no markdown fencing. Begin with [ and end with ].

BRIEF SECTION (%s):

%s`

func extractPrompt(locator, section string) string {
	return fmt.Sprintf(extractPromptFormat, locator, section)
}

const verifySystem = `You are a meticulous legal cite-checker. You check assertions from a brief against the text of ONE source and report exactly what you find. You output only JSON.`

const verifyPromptFormat = `Check each numbered assertion below against the source text that follows. For each one:

1. Quotations attributed to the source must be verbatim. Ellipses may replace omitted text and brackets may mark alterations; anything else that adds, removes, or changes words is an error.
2. When the brief says the source "held", "found", or "concluded" something, confirm the source actually says that.
3. Confirm any pin cite points at the material it claims to.

For each assertion output one JSON object:
- assertion: the assertion number as given below
- status: "verified", "inaccurate", "unsupported", or "needs_source"
- severity: when status is "inaccurate", one of "minor", "moderate", "significant", "critical"; omit otherwise
- detail: if verified, say so briefly; if not, explain precisely what is wrong
- needed_citations: when status is "needs_source", the citation(s) of the document actually required to check the assertion (e.g., "871 S.W.2d 726"); omit otherwise

Use "needs_source" only when this source genuinely cannot settle the assertion because a different document is the one being characterized. Use "unsupported" when this source is the right one but does not address the proposition.

Output ONLY a JSON array with one object per assertion. Begin with [ and end with ].

ASSERTIONS:

%s

SOURCE (%s):

%s`

func verifyPrompt(assertions []model.CitationAssertion, indexes []int, sourceLabel, sourceText string) string {
	var b strings.Builder
	for i, idx := range indexes {
		a := assertions[idx]
		fmt.Fprintf(&b, "%d. [%s, cited as %q, purpose: %s]\n", i+1, a.CaseName, a.CiteText, a.Purpose)
		fmt.Fprintf(&b, "   Proposition: %s\n", a.Proposition)
		if a.Quotation != "" {
			fmt.Fprintf(&b, "   Quotation: %q\n", a.Quotation)
		}
		if a.Context != "" {
			fmt.Fprintf(&b, "   Context: %s\n", a.Context)
		}
		b.WriteString("\n")
	}
	return fmt.Sprintf(verifyPromptFormat, b.String(), sourceLabel, sourceText)
}
