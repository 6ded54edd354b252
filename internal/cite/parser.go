// Package cite parses legal citation syntax. The pipeline core never
// interprets citation strings itself; it hands them here.
package cite

import (
	"regexp"
	"strings"

	"github.com/markwbennett/brief-analyzer/internal/model"
)

// Reporter abbreviations recognized in citations
const reporters = `(S\.W\.(?:2d|3d)|U\.S\.|S\.\s*Ct\.|L\.\s*Ed\.(?:\s*2d)?|` +
	`F\.(?:2d|3d|4th)|F\.\s*Supp\.(?:\s*2d|\s*3d)?|F\.\s*App'x|` +
	`N\.E\.(?:2d|3d)?|A\.(?:2d|3d)?|P\.(?:2d|3d)?|So\.(?:\s*2d|\s*3d)?|Tex\.)`

var (
	// Full case citations: Name v. Name, VOL Reporter PAGE
	fullCiteRE = regexp.MustCompile(
		`([A-Z][A-Za-z'’.\-]+(?:\s+(?:ex\s+rel\.\s+)?[A-Za-z'’.\-]+)*` +
			`\s+v\.\s+` +
			`[A-Z][A-Za-z'’.\-]+(?:\s+[A-Za-z'’.\-]+)*)` +
			`,?\s*(\d+)\s+` + reporters + `\s+(\d+)`)

	// Bare reporter citations: VOL Reporter PAGE (optionally "at PAGE")
	bareCiteRE = regexp.MustCompile(`(\d+)\s+` + reporters + `\s+(?:at\s+)?(\d+)`)

	// Pin cites following a citation: "at 878" or "at 878-79"
	pinCiteRE = regexp.MustCompile(`\bat\s+(\d+(?:\s*[-–]\s*\d+)?)`)

	// Westlaw citations for unpublished opinions: 2014 WL 7131176
	wlCiteRE = regexp.MustCompile(`(\d{4})\s+WL\s+(\d+)`)

	// Id. citations refer back to the immediately preceding authority
	idCiteRE = regexp.MustCompile(`\b[Ii]d\.\s*(?:at\s+(\d+))?`)
)

// First parties too common to identify a case; match on the other party
var genericParties = map[string]bool{
	"state": true, "united": true, "states": true, "people": true,
	"commonwealth": true, "com": true, "texas": true, "florida": true,
	"california": true, "illinois": true, "kansas": true, "minnesota": true,
	"ex": true, "parte": true,
}

// Words stripped from the end of party names before keyword selection
var noiseWords = map[string]bool{
	"no": true, "inc": true, "co": true, "corp": true, "ltd": true,
	"dist": true, "et": true, "al": true, "the": true, "of": true,
}

// ParseAll extracts every distinct citation from a block of text,
// deduplicated by normalized key.
func ParseAll(text string) []model.Citation {
	var cites []model.Citation
	seen := make(map[string]bool)

	for _, m := range fullCiteRE.FindAllStringSubmatch(text, -1) {
		key := model.CitationKey{Volume: m[2], Reporter: m[3], Page: m[4]}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		cites = append(cites, model.Citation{
			CaseName: strings.TrimSpace(m[1]),
			Key:      key,
		})
	}

	for _, m := range bareCiteRE.FindAllStringSubmatch(text, -1) {
		key := model.CitationKey{Volume: m[1], Reporter: m[2], Page: m[3]}
		if seen[key.String()] {
			continue
		}
		seen[key.String()] = true
		cites = append(cites, model.Citation{Key: key})
	}

	for _, m := range wlCiteRE.FindAllStringSubmatch(text, -1) {
		id := m[1] + " WL " + m[2]
		if seen[id] {
			continue
		}
		seen[id] = true
		cites = append(cites, model.Citation{
			Key:      model.CitationKey{Reporter: "WL", Page: m[2]},
			Year:     m[1],
			WLNumber: m[2],
		})
	}

	return cites
}

// ParseKey parses a single normalized citation key string like
// "871 S.W.2d 726" or "2014 WL 7131176". The second return is false when
// the string contains no recognizable citation.
func ParseKey(s string) (model.CitationKey, bool) {
	if m := bareCiteRE.FindStringSubmatch(s); m != nil {
		return model.CitationKey{Volume: m[1], Reporter: m[2], Page: m[3]}, true
	}
	if m := wlCiteRE.FindStringSubmatch(s); m != nil {
		return model.CitationKey{Reporter: "WL", Page: m[2]}, true
	}
	return model.CitationKey{}, false
}

// ParseOne parses the first full citation in s, falling back to a bare key.
// Useful for needs_source citation strings that may carry a case name.
func ParseOne(s string) (model.Citation, bool) {
	if m := fullCiteRE.FindStringSubmatch(s); m != nil {
		c := model.Citation{
			CaseName: strings.TrimSpace(m[1]),
			Key:      model.CitationKey{Volume: m[2], Reporter: m[3], Page: m[4]},
		}
		if pm := pinCiteRE.FindStringSubmatch(s[len(m[0]):]); pm != nil {
			c.PinCite = "at " + pm[1]
		}
		return c, true
	}
	if key, ok := ParseKey(s); ok {
		return model.Citation{Key: key}, true
	}
	return model.Citation{}, false
}

// HasIDCite reports whether text contains an "Id." citation
func HasIDCite(text string) bool {
	return idCiteRE.MatchString(text)
}

// Keywords extracts distinctive lowercase name tokens from a case name for
// authority matching, most distinctive first. Generic first parties
// ("United States", "State") defer to the opposing party.
func Keywords(caseName string) []string {
	if caseName == "" {
		return nil
	}

	var first, second string
	switch {
	case strings.Contains(caseName, " v. "):
		parts := strings.SplitN(caseName, " v. ", 2)
		first, second = parts[0], parts[1]
	case strings.Contains(caseName, " v "):
		parts := strings.SplitN(caseName, " v ", 2)
		first, second = parts[0], parts[1]
	default:
		first = caseName
	}

	var keywords []string
	add := func(party string) {
		if w := bestWord(party); w != "" {
			keywords = append(keywords, w)
		}
	}

	firstWord := bestWord(first)
	if genericParties[firstWord] && second != "" {
		add(second)
		add(first)
	} else {
		add(first)
		if second != "" {
			add(second)
		}
	}

	return keywords
}

// bestWord picks the most distinctive word in a party name: the last word
// that is not noise, a number, or a single letter.
func bestWord(party string) string {
	words := strings.Fields(party)
	for i := len(words) - 1; i >= 0; i-- {
		clean := normalizeWord(words[i])
		if clean == "" || noiseWords[clean] || isDigits(clean) || len(clean) <= 1 {
			continue
		}
		return clean
	}
	for _, w := range words {
		clean := normalizeWord(w)
		if len(clean) > 1 && !isDigits(clean) {
			return clean
		}
	}
	return ""
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, ".,;:'’\""))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// TokenOverlap counts how many of the stored keywords appear as tokens of
// the hint, used by the disambiguator's scoring.
func TokenOverlap(keywords []string, hint string) int {
	hintTokens := make(map[string]bool)
	for _, w := range strings.Fields(hint) {
		hintTokens[normalizeWord(w)] = true
	}
	score := 0
	for _, kw := range keywords {
		if hintTokens[kw] {
			score++
		}
	}
	return score
}
