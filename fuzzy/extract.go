package fuzzy

import (
	"sort"
	"sync"
)

// Match is a candidate that scored at or above the cutoff for a query.
type Match struct {
	Candidate string
	Score     float64
	Index     int
}

// ExtractFunc is the matching capability consumed by the reporter: given a
// query and candidates it returns at most limit matches scoring at least
// cutoff, best first. A non-positive limit means no cap.
type ExtractFunc func(query string, choices []string, limit int, cutoff float64) []Match

// Scorer rates two processed strings on a 0-100 scale.
type Scorer func(a, b string) float64

// Processor normalises a string before scoring. A nil Processor leaves
// inputs untouched.
type Processor func(string) string

type Option func(*Extractor)

// Extractor ranks candidates with a configurable scorer and processor.
type Extractor struct {
	scorer    Scorer
	processor Processor
	// weighted is set while the built-in WRatio scorer is in use.
	weighted bool

	mu     sync.Mutex
	cached choiceCache
}

// choiceCache holds the processed form of the most recent choices slice.
type choiceCache struct {
	first *string
	n     int
	texts []text
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{scorer: WRatio, processor: DefaultProcess, weighted: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithScorer(scorer Scorer) Option {
	return func(e *Extractor) {
		if scorer != nil {
			e.scorer = scorer
			e.weighted = false
		}
	}
}

// WithProcessor replaces the input normaliser; pass nil to score raw strings.
func WithProcessor(processor Processor) Option {
	return func(e *Extractor) {
		e.processor = processor
	}
}

var defaultExtractor = NewExtractor()

// Extract ranks choices against query using WRatio on processed input.
func Extract(query string, choices []string, limit int, cutoff float64) []Match {
	return defaultExtractor.Extract(query, choices, limit, cutoff)
}

// Extract returns the best matches for query. Equal scores keep candidate
// order.
//
// The processed form of choices is kept between calls, keyed by the slice,
// so scoring many queries against one list processes it once. Choices must
// not be modified in place between calls.
func (e *Extractor) Extract(query string, choices []string, limit int, cutoff float64) []Match {
	if len(choices) == 0 {
		return nil
	}

	processedQuery := e.process(query)
	if processedQuery == "" {
		return nil
	}
	texts := e.prepare(choices)

	matches := make([]Match, 0)
	if e.weighted {
		q := newText(processedQuery)
		var sc scratch
		for i := range texts {
			candidate := &texts[i]
			if candidate.s == "" || wratioBound(len(q.runes), len(candidate.runes)) < cutoff {
				continue
			}
			if score := sc.wratio(&q, candidate); score >= cutoff {
				matches = append(matches, Match{Candidate: choices[i], Score: score, Index: i})
			}
		}
	} else {
		for i, candidate := range texts {
			if candidate.s == "" {
				continue
			}
			if score := e.scorer(processedQuery, candidate.s); score >= cutoff {
				matches = append(matches, Match{Candidate: choices[i], Score: score, Index: i})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (e *Extractor) prepare(choices []string) []text {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cached.n == len(choices) && e.cached.first == &choices[0] {
		return e.cached.texts
	}

	texts := make([]text, len(choices))
	for i, choice := range choices {
		processed := e.process(choice)
		if e.weighted {
			texts[i] = newText(processed)
		} else {
			texts[i] = text{s: processed}
		}
	}
	e.cached = choiceCache{first: &choices[0], n: len(choices), texts: texts}
	return texts
}

// Func exposes the extractor as an ExtractFunc.
func (e *Extractor) Func() ExtractFunc {
	return e.Extract
}

func (e *Extractor) process(s string) string {
	if e.processor == nil {
		return s
	}
	return e.processor(s)
}
