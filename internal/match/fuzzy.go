// Package match scores free text against canonical names.
package match

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Choice is a canonical (code, name) pair to match against.
type Choice struct {
	Code string
	Name string
}

// Match is the best scoring choice for a query.
type Match struct {
	Code  string
	Name  string
	Score int // 0-100
}

// Choices converts a code -> name map into a slice ordered by name, then
// code, so that tie-breaking does not depend on map iteration order.
func Choices(m map[string]string) []Choice {
	out := make([]Choice, 0, len(m))
	for code, name := range m {
		out = append(out, Choice{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// BestMatch scores query against every choice with TokenSortRatio and
// returns the highest. The first choice reaching the maximum wins. ok is
// false only when choices is empty.
func BestMatch(query string, choices []Choice) (m Match, ok bool) {
	if len(choices) == 0 {
		return Match{}, false
	}
	q := sortTokens(Normalize(query))
	best := -1
	for _, c := range choices {
		score := ratio(q, sortTokens(Normalize(c.Name)))
		if score > best {
			best = score
			m = Match{Code: c.Code, Name: c.Name, Score: score}
		}
	}
	return m, true
}

// Normalize folds s to NFKC lower case, replaces every rune that is not a
// letter or digit with a space and trims the result.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

// TokenSortRatio compares a and b after normalizing and sorting their
// tokens, so "Andhra Pradesh" and "pradesh andhra" score 100.
func TokenSortRatio(a, b string) int {
	return ratio(sortTokens(Normalize(a)), sortTokens(Normalize(b)))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// ratio is the normalized Indel similarity 100 * 2*LCS / (len(a)+len(b)),
// rounded half to even. Empty input scores 0.
func ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := lcsLength(ra, rb)
	score := 100 * float64(2*lcs) / float64(len(ra)+len(rb))
	return int(math.RoundToEven(score))
}

// lcsLength returns the length of the longest common subsequence.
func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
