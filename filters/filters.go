// Package filters narrows and normalises the day's domains before they are
// scored against the wordlist.
package filters

import (
	"path"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Options selects which candidate transformations are applied.
type Options struct {
	// Exclude drops domains matching a glob pattern, a ".suffix" or a
	// plain substring.
	Exclude []string
	// TLDs keeps only domains whose public suffix is, or ends in, one of
	// these values.
	TLDs []string
	// MatchLabel scores the registrable label ("examp1e" for
	// "examp1e.co.uk") instead of the full domain.
	MatchLabel bool
	// DecodeIDN converts punycode labels to Unicode before scoring.
	DecodeIDN bool
}

// Filter prepares candidate lists for the fuzzy matcher.
type Filter struct {
	exclude    []string
	tlds       []string
	matchLabel bool
	decodeIDN  bool
}

// Candidates pairs the strings handed to the scorer with the feed domains
// they came from. Keys[i] was derived from Domains[i].
type Candidates struct {
	Keys    []string
	Domains []string
	// Dropped counts domains removed by exclude or TLD rules.
	Dropped int
}

func New(opts Options) *Filter {
	f := &Filter{matchLabel: opts.MatchLabel, decodeIDN: opts.DecodeIDN}
	for _, pattern := range opts.Exclude {
		if pattern = strings.ToLower(strings.TrimSpace(pattern)); pattern != "" {
			f.exclude = append(f.exclude, pattern)
		}
	}
	for _, tld := range opts.TLDs {
		tld = strings.ToLower(strings.Trim(strings.TrimSpace(tld), "."))
		if tld != "" {
			f.tlds = append(f.tlds, tld)
		}
	}
	return f
}

// Passthrough reports whether Apply would return the domains unchanged.
func (f *Filter) Passthrough() bool {
	return f == nil || (len(f.exclude) == 0 && len(f.tlds) == 0 && !f.matchLabel && !f.decodeIDN)
}

// Apply builds the candidate list. Order is preserved. With no options set
// the input slice is shared, not copied.
func (f *Filter) Apply(domains []string) Candidates {
	if f.Passthrough() {
		return Candidates{Keys: domains, Domains: domains}
	}

	out := Candidates{
		Keys:    make([]string, 0, len(domains)),
		Domains: make([]string, 0, len(domains)),
	}
	for _, domain := range domains {
		lower := strings.ToLower(domain)
		if MatchesAny(lower, f.exclude) || !f.allowedTLD(lower) {
			out.Dropped++
			continue
		}
		out.Keys = append(out.Keys, f.key(lower))
		out.Domains = append(out.Domains, domain)
	}
	return out
}

func (f *Filter) key(domain string) string {
	if f.matchLabel {
		domain = RegistrableLabel(domain)
	}
	if f.decodeIDN {
		domain = NormalizeDomain(domain)
	}
	return domain
}

func (f *Filter) allowedTLD(domain string) bool {
	if len(f.tlds) == 0 {
		return true
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	for _, tld := range f.tlds {
		if suffix == tld || strings.HasSuffix(suffix, "."+tld) {
			return true
		}
	}
	return false
}

// MatchesAny reports whether candidate matches one of the patterns. Patterns
// containing glob metacharacters use path.Match, patterns starting with "."
// match as a suffix and anything else as a substring. Callers pass lowercase
// input.
func MatchesAny(candidate string, patterns []string) bool {
	if candidate == "" {
		return false
	}
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.ContainsAny(pattern, "*?[]") {
			if ok, err := path.Match(pattern, candidate); err == nil && ok {
				return true
			}
			continue
		}
		if strings.HasPrefix(pattern, ".") {
			if strings.HasSuffix(candidate, pattern) {
				return true
			}
			continue
		}
		if strings.Contains(candidate, pattern) {
			return true
		}
	}
	return false
}

// NormalizeDomain lowercases domain and decodes punycode labels. Labels that
// fail to decode are kept in their ASCII form.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if !strings.Contains(domain, "xn--") {
		return domain
	}
	decoded, err := idna.Punycode.ToUnicode(domain)
	if err != nil {
		return domain
	}
	return decoded
}

// RegistrableLabel returns the label directly left of the public suffix:
// "examp1e" for "login.examp1e.co.uk". Domains without a registrable part
// are returned unchanged.
func RegistrableLabel(domain string) string {
	etldPlusOne, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return domain
	}
	suffix, _ := publicsuffix.PublicSuffix(etldPlusOne)
	label := strings.TrimSuffix(etldPlusOne, "."+suffix)
	if label == "" {
		return domain
	}
	return label
}

// Registrable returns the registrable domain (eTLD+1) or "" when domain has
// none.
func Registrable(domain string) string {
	etldPlusOne, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(domain))
	if err != nil {
		return ""
	}
	return etldPlusOne
}
