package mapping

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/docrows/internal/entity"
)

// Predicate decides whether a rule applies to a column. Tokens are matched as substrings
// of the lower-cased column name; Words are matched against whole words of the column
// (split on punctuation and camelCase boundaries).
type Predicate struct {
	All    [][]string `yaml:"all,omitempty"`   // every group needs one token present
	Any    []string   `yaml:"any,omitempty"`   // at least one token present
	Words  []string   `yaml:"words,omitempty"` // at least one whole word present
	None   []string   `yaml:"none,omitempty"`  // no token present
	Always bool       `yaml:"always,omitempty"`
}

// IsZero reports whether the predicate can never select a column on its own.
func (p Predicate) IsZero() bool {
	return !p.Always && len(p.All) == 0 && len(p.Any) == 0 && len(p.Words) == 0
}

// Matches evaluates the predicate against a raw column name.
func (p Predicate) Matches(column string) bool {
	lower := strings.ToLower(column)
	if containsAny(lower, p.None) {
		return false
	}
	if p.Always {
		return true
	}
	if p.IsZero() {
		return false
	}
	for _, group := range p.All {
		if !containsAny(lower, group) {
			return false
		}
	}
	if len(p.Any) > 0 && !containsAny(lower, p.Any) {
		return false
	}
	if len(p.Words) > 0 && !hasAnyWord(Words(column), p.Words) {
		return false
	}
	return true
}

// Resolver picks the extraction field that feeds a column once its rule has matched.
// Strategies run in order: Keys, KeyContains, Similar. Keys with blank values are skipped.
type Resolver struct {
	// Keys are candidate labels compared case-insensitively, in declared order.
	Keys []string `yaml:"keys,omitempty"`
	// KeyContains lists token groups; the first group for which some key (in sorted
	// order) contains every token wins.
	KeyContains [][]string `yaml:"key_contains,omitempty"`
	// Similar is a levenshtein similarity threshold in (0,1] between the normalized
	// column and normalized keys. Zero disables it.
	Similar float64 `yaml:"similar,omitempty"`
	// MatchYear restricts Keys and KeyContains to keys carrying the column's year, falling
	// back to keys that carry no year at all. Keys are then compared with years removed.
	MatchYear bool `yaml:"match_year,omitempty"`
}

// IsZero reports whether the resolver has no strategy configured.
func (r Resolver) IsZero() bool {
	return len(r.Keys) == 0 && len(r.KeyContains) == 0 && r.Similar <= 0
}

// Resolve returns the chosen key, or false when nothing usable was found.
func (r Resolver) Resolve(column string, ex entity.ExtractionResult) (string, bool) {
	keys := usableKeys(ex)
	if len(keys) == 0 {
		return "", false
	}

	pools := [][]string{keys}
	if r.MatchYear {
		if years := yearsIn(column); len(years) > 0 {
			pools = splitByYear(keys, years)
		}
	}
	for _, pool := range pools {
		if k, ok := r.byName(pool); ok {
			return k, true
		}
		if k, ok := firstContaining(pool, r.KeyContains); ok {
			return k, true
		}
	}

	if r.Similar > 0 {
		return mostSimilar(column, keys, r.Similar)
	}
	return "", false
}

func (r Resolver) byName(keys []string) (string, bool) {
	for _, want := range r.Keys {
		want = strings.TrimSpace(want)
		for _, k := range keys {
			name := k
			if r.MatchYear {
				name = stripYears(k)
			}
			if strings.EqualFold(strings.TrimSpace(name), want) {
				return k, true
			}
		}
	}
	return "", false
}

// splitByYear returns the keys carrying one of years, then the keys carrying no year.
// Keys for other years are dropped.
func splitByYear(keys, years []string) [][]string {
	var sameYear, noYear []string
	for _, k := range keys {
		ky := yearsIn(k)
		switch {
		case len(ky) == 0:
			noYear = append(noYear, k)
		case overlaps(ky, years):
			sameYear = append(sameYear, k)
		}
	}
	return [][]string{sameYear, noYear}
}

// Rule is one row of the rule table.
type Rule struct {
	Name    string    `yaml:"name"`
	Field   string    `yaml:"field,omitempty"`
	When    Predicate `yaml:"when"`
	Resolve Resolver  `yaml:"resolve"`
}

var (
	yearRe     = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)
	yearWordRe = regexp.MustCompile(`\b(?:19|20)[0-9]{2}\b`)
)

func stripYears(s string) string {
	return strings.Join(strings.Fields(yearWordRe.ReplaceAllString(s, " ")), " ")
}

func yearsIn(s string) []string {
	var out []string
	for _, m := range yearRe.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func usableKeys(ex entity.ExtractionResult) []string {
	all := ex.Keys()
	out := all[:0]
	for _, k := range all {
		if v, _ := ex.Get(k); present(v) {
			out = append(out, k)
		}
	}
	return out
}

func firstContaining(keys []string, groups [][]string) (string, bool) {
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		for _, k := range keys {
			if containsAll(strings.ToLower(k), group) {
				return k, true
			}
		}
	}
	return "", false
}

// mostSimilar returns the key with the highest similarity at or above threshold.
// Ties keep the earlier (sorted) key.
func mostSimilar(column string, keys []string, threshold float64) (string, bool) {
	col := normalize(column)
	if col == "" {
		return "", false
	}
	best, bestScore := "", 0.0
	for _, k := range keys {
		score := similarity(col, normalize(k))
		if score > bestScore {
			best, bestScore = k, score
		}
	}
	if best == "" || bestScore < threshold {
		return "", false
	}
	return best, true
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	score := 1 - float64(levenshtein.Distance(a, b, nil))/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// normalize lower-cases s and drops everything but letters and digits.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Words splits a column name into lower-cased words on punctuation, spaces and
// lower-to-upper case changes ("TechnologyAIClause" -> technology, ai, clause).
func Words(s string) []string {
	var words []string
	var cur []rune
	runes := []rune(s)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

func hasAnyWord(words, want []string) bool {
	for _, w := range words {
		for _, x := range want {
			if w == x {
				return true
			}
		}
	}
	return false
}
