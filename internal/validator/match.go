package validator

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// normalizeName collapses case styles so snake_case, camelCase, and
// PascalCase spellings of the same identifier compare equal.
func normalizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if r == '_' || r == '$' {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// bestFuzzyMatch returns the candidate most similar to name, provided the
// similarity clears the acceptance threshold.
func bestFuzzyMatch(name string, candidates []string) (string, bool) {
	best := ""
	bestScore := fuzzyAcceptThreshold
	for _, candidate := range candidates {
		if score := nameSimilarity(name, candidate); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, best != ""
}

// nameSimilarity is edit-distance similarity over normalized names, scaled
// to [0, 1].
func nameSimilarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return 1.0
	}
	longest := max(len([]rune(na)), len([]rune(nb)))
	if longest == 0 {
		return 0
	}
	return 1.0 - float64(levenshtein(na, nb))/float64(longest)
}

func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

var nullForms = map[string]bool{
	"null":      true,
	"nil":       true,
	"undefined": true,
	"none":      true,
}

// valuesEquivalent compares two textual values across languages. Numbers
// compare within an epsilon, boolean and null spellings are normalized,
// and everything else falls back to string equality.
func valuesEquivalent(source, target string) bool {
	s, t := strings.TrimSpace(source), strings.TrimSpace(target)
	if s == t {
		return true
	}

	sn, sErr := strconv.ParseFloat(s, 64)
	tn, tErr := strconv.ParseFloat(t, 64)
	if sErr == nil && tErr == nil {
		return math.Abs(sn-tn) < numericEpsilon
	}

	sl, tl := strings.ToLower(s), strings.ToLower(t)
	if sl == "true" || sl == "false" || tl == "true" || tl == "false" {
		return sl == tl
	}
	if nullForms[sl] && nullForms[tl] {
		return true
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func relativeDiff(a, b int) float64 {
	if a == b {
		return 0
	}
	larger := max(a, b)
	if larger == 0 {
		return 0
	}
	return math.Abs(float64(a-b)) / float64(larger)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
