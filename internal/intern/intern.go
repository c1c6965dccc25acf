package intern

import "sync"

// Table deduplicates repeated strings so that equal values share one backing
// allocation. The zero value is not usable; call New.
type Table struct {
	mu     sync.RWMutex
	values map[string]string
}

// New returns an empty table sized for roughly hint distinct values.
func New(hint int) *Table {
	if hint < 0 {
		hint = 0
	}
	return &Table{values: make(map[string]string, hint)}
}

// Intern returns the canonical copy of s.
func (t *Table) Intern(s string) string {
	if s == "" || t == nil {
		return s
	}

	t.mu.RLock()
	interned, ok := t.values[s]
	t.mu.RUnlock()
	if ok {
		return interned
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if interned, ok := t.values[s]; ok {
		return interned
	}
	t.values[s] = s
	return s
}

// Len reports the number of distinct values held.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}
