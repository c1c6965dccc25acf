// Package fuzzy scores string likeness on a 0-100 scale and extracts the
// best-scoring candidates for a query.
//
// The scorers follow the familiar weighted-ratio family built on the
// insert/delete (InDel) ratio 100*2*LCS/(len(a)+len(b)): a plain ratio, a
// best-window partial ratio and token-order insensitive variants, combined by
// WRatio with length-dependent weights. Lengths count runes.
package fuzzy

import (
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	unbaseScale = 0.95
	// WRatio switches from whole-string to partial scoring at this length
	// ratio.
	partialThreshold = 1.5
)

// text is a processed string in the shapes the scorers work on.
type text struct {
	s      string
	runes  []rune
	sorted []rune   // tokens sorted and joined by single spaces
	tokens []string // distinct tokens, sorted
	words  int      // token count including repeats
}

func newText(s string) text {
	fields := strings.Fields(s)
	sort.Strings(fields)
	t := text{
		s:      s,
		runes:  []rune(s),
		sorted: []rune(strings.Join(fields, " ")),
		words:  len(fields),
	}
	t.tokens = slices.Compact(fields)
	return t
}

// Ratio returns the normalised InDel similarity of a and b.
func Ratio(a, b string) float64 {
	var sc scratch
	return sc.ratio([]rune(a), []rune(b))
}

// PartialRatio scores the shorter string against the best aligned window of
// the longer one, including windows that hang off either end.
func PartialRatio(a, b string) float64 {
	var sc scratch
	return sc.partial([]rune(a), []rune(b))
}

// TokenSortRatio compares a and b after sorting their whitespace tokens.
func TokenSortRatio(a, b string) float64 {
	ta, tb := newText(a), newText(b)
	var sc scratch
	return sc.tokenSort(&ta, &tb)
}

// TokenSetRatio compares the shared tokens of a and b against each side's
// remainder, so extra words on one side cost little.
func TokenSetRatio(a, b string) float64 {
	ta, tb := newText(a), newText(b)
	var sc scratch
	return sc.tokenSet(&ta, &tb)
}

// PartialTokenRatio is the partial ratio counterpart of the token ratios.
func PartialTokenRatio(a, b string) float64 {
	ta, tb := newText(a), newText(b)
	var sc scratch
	return sc.partialToken(&ta, &tb)
}

// WRatio weighs the ratio family by how different the input lengths are.
// Either input being empty scores 0.
func WRatio(a, b string) float64 {
	ta, tb := newText(a), newText(b)
	var sc scratch
	return sc.wratio(&ta, &tb)
}

func (sc *scratch) tokenSort(a, b *text) float64 {
	return sc.ratio(a.sorted, b.sorted)
}

func (sc *scratch) tokenSet(a, b *text) float64 {
	if len(a.tokens) == 0 || len(b.tokens) == 0 {
		return 0
	}
	shared, onlyA, onlyB := splitTokens(a.tokens, b.tokens)
	if len(shared) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	diffAB := []rune(strings.Join(onlyA, " "))
	diffBA := []rune(strings.Join(onlyB, " "))
	sect := joinedLen(shared)
	sep := 0
	if sect > 0 {
		sep = 1
	}
	sectAB := sect + sep + len(diffAB)
	sectBA := sect + sep + len(diffBA)

	// The shared prefix matches itself, so only the remainders contribute
	// to the distance between the two recombined strings.
	dist := len(diffAB) + len(diffBA) - 2*sc.lcs(diffAB, diffBA)
	best := 100 - 100*float64(dist)/float64(sectAB+sectBA)
	if sect == 0 {
		return best
	}
	best = max(best, 100-100*float64(sep+len(diffAB))/float64(sect+sectAB))
	best = max(best, 100-100*float64(sep+len(diffBA))/float64(sect+sectBA))
	return best
}

func (sc *scratch) partialToken(a, b *text) float64 {
	if sharesToken(a.tokens, b.tokens) {
		return 100
	}
	best := sc.partial(a.sorted, b.sorted)
	if a.words == len(a.tokens) && b.words == len(b.tokens) {
		return best
	}
	distinctA := []rune(strings.Join(a.tokens, " "))
	distinctB := []rune(strings.Join(b.tokens, " "))
	return max(best, sc.partial(distinctA, distinctB))
}

func (sc *scratch) wratio(a, b *text) float64 {
	la, lb := len(a.runes), len(b.runes)
	if la == 0 || lb == 0 {
		return 0
	}

	score := sc.ratio(a.runes, b.runes)
	lenRatio := lengthRatio(la, lb)
	if lenRatio < partialThreshold {
		token := max(sc.tokenSort(a, b), sc.tokenSet(a, b))
		return max(score, token*unbaseScale)
	}

	scale := partialScale(lenRatio)
	score = max(score, sc.partial(a.runes, b.runes)*scale)
	return max(score, sc.partialToken(a, b)*unbaseScale*scale)
}

// wratioBound is the highest score WRatio can give strings of these rune
// lengths.
func wratioBound(la, lb int) float64 {
	if la == 0 || lb == 0 {
		return 0
	}
	lenRatio := lengthRatio(la, lb)
	if lenRatio < partialThreshold {
		return 100
	}
	return max(indelRatio(min(la, lb), la, lb), 100*partialScale(lenRatio))
}

func lengthRatio(la, lb int) float64 {
	if la > lb {
		return float64(la) / float64(lb)
	}
	return float64(lb) / float64(la)
}

func partialScale(lenRatio float64) float64 {
	if lenRatio >= 8 {
		return 0.6
	}
	return 0.9
}

// splitTokens partitions two sorted distinct token lists.
func splitTokens(a, b []string) (shared, onlyA, onlyB []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			shared = append(shared, a[i])
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)
	return shared, onlyA, onlyB
}

func sharesToken(a, b []string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// joinedLen is the rune length of tokens joined by single spaces.
func joinedLen(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	n := len(tokens) - 1
	for _, tok := range tokens {
		n += utf8.RuneCountInString(tok)
	}
	return n
}

// DefaultProcess lower-cases s, turns every non-alphanumeric rune into a
// space and trims the result, so "Evil-Example.com" scores as
// "evil example com".
func DefaultProcess(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.TrimSpace(mapped)
}
