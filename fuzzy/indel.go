package fuzzy

import "math/bits"

// maxPatternLen is the longest string a pattern can hold, one bit per rune.
const maxPatternLen = 64

// pattern is the bit-parallel match table of a string of at most 64 runes:
// bit i of mask(r) is set when the string holds r at position i.
type pattern struct {
	runes []rune
	ascii [128]uint64
	other map[rune]uint64
}

func (p *pattern) load(s []rune) {
	for _, r := range p.runes {
		if uint32(r) < 128 {
			p.ascii[r] = 0
		}
	}
	clear(p.other)

	p.runes = s
	for i, r := range s {
		bit := uint64(1) << uint(i)
		if uint32(r) < 128 {
			p.ascii[r] |= bit
			continue
		}
		if p.other == nil {
			p.other = make(map[rune]uint64)
		}
		p.other[r] |= bit
	}
}

func (p *pattern) mask(r rune) uint64 {
	if uint32(r) < 128 {
		return p.ascii[r]
	}
	return p.other[r]
}

// lcs returns the length of the longest common subsequence of the loaded
// string and b, using Hyyrö's bit-vector recurrence.
func (p *pattern) lcs(b []rune) int {
	v := ^uint64(0)
	for _, r := range b {
		u := v & p.mask(r)
		v = (v + u) | (v - u)
	}
	low := ^uint64(0)
	if n := len(p.runes); n < maxPatternLen {
		low = uint64(1)<<uint(n) - 1
	}
	return bits.OnesCount64(^v & low)
}

// lcsTable is the dynamic programming fallback for strings too long for a
// pattern. row is reused between calls.
func lcsTable(a, b []rune, row []int) (int, []int) {
	if cap(row) < len(b)+1 {
		row = make([]int, len(b)+1)
	}
	row = row[:len(b)+1]
	clear(row)
	for _, ra := range a {
		diag := 0
		for j, rb := range b {
			up := row[j+1]
			if ra == rb {
				row[j+1] = diag + 1
			} else if row[j] > up {
				row[j+1] = row[j]
			}
			diag = up
		}
	}
	return row[len(b)], row
}

// scratch carries the buffers used while scoring. It is not safe for
// concurrent use; every Extract call gets its own.
type scratch struct {
	pat pattern
	row []int
}

func (sc *scratch) lcs(a, b []rune) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return 0
	}
	if len(a) <= maxPatternLen {
		sc.pat.load(a)
		return sc.pat.lcs(b)
	}
	n, row := lcsTable(a, b, sc.row)
	sc.row = row
	return n
}

// indelRatio normalises the insert/delete distance of two strings with the
// given common subsequence length to 0-100.
func indelRatio(common, la, lb int) float64 {
	if la+lb == 0 {
		return 100
	}
	return 100 * float64(2*common) / float64(la+lb)
}

func (sc *scratch) ratio(a, b []rune) float64 {
	return indelRatio(sc.lcs(a, b), len(a), len(b))
}

func (sc *scratch) partial(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	best := sc.partialWindows(short, long)
	if best < 100 && len(a) == len(b) {
		if s := sc.partialWindows(long, short); s > best {
			best = s
		}
	}
	return best
}

// partialWindows scores short against every window of long with short's
// length, and against the shorter prefixes and suffixes of long.
func (sc *scratch) partialWindows(short, long []rune) float64 {
	m, n := len(short), len(long)
	usePattern := m <= maxPatternLen
	if usePattern {
		sc.pat.load(short)
	}

	best := 0.0
	score := func(window []rune) bool {
		var common int
		if usePattern {
			common = sc.pat.lcs(window)
		} else {
			common, sc.row = lcsTable(short, window, sc.row)
		}
		if s := indelRatio(common, m, len(window)); s > best {
			best = s
		}
		return best >= 100
	}
	// A window whose open end holds a rune missing from short never scores
	// above its neighbour one step further in.
	skip := func(r rune) bool {
		return usePattern && sc.pat.mask(r) == 0
	}

	for k := 1; k < m; k++ {
		if skip(long[k-1]) {
			continue
		}
		if score(long[:k]) {
			return 100
		}
	}
	for i := 0; i+m <= n; i++ {
		if skip(long[i]) {
			continue
		}
		if score(long[i : i+m]) {
			return 100
		}
	}
	for k := m - 1; k > 0; k-- {
		if skip(long[n-k]) {
			continue
		}
		if score(long[n-k:]) {
			return 100
		}
	}
	return best
}
