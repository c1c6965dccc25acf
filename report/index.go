package report

import (
	"strings"

	"github.com/zeebo/xxh3"
)

// Index remembers which domains have been reported. Only 64-bit hashes are
// kept, so a day's worth of matches costs a few bytes per entry.
type Index struct {
	seen map[uint64]struct{}
}

func NewIndex() *Index {
	return &Index{seen: make(map[uint64]struct{})}
}

// Add records domain and reports whether it was new. Comparison is case
// insensitive.
func (i *Index) Add(domain string) bool {
	key := xxh3.HashString(strings.ToLower(strings.TrimSpace(domain)))
	if _, ok := i.seen[key]; ok {
		return false
	}
	i.seen[key] = struct{}{}
	return true
}

func (i *Index) Len() int {
	return len(i.seen)
}
