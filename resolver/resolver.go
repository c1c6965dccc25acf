// Package resolver looks up address records for matched domains so analysts
// can tell registered-but-dark names from live ones.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/yourusername/domainspotter/ratelimit"
)

// Options controls Resolver instantiation behaviour.
type Options struct {
	Server      string
	Timeout     time.Duration
	RateLimiter *ratelimit.Limiter
}

var defaultDNSServers = []string{
	"8.8.8.8:53",
	"1.1.1.1:53",
	"9.9.9.9:53",
}

// Resolver performs A/AAAA lookups against a list of upstream servers.
type Resolver struct {
	client  exchanger
	servers []string
	timeout time.Duration
	limiter *ratelimit.Limiter
}

// Result summarises the DNS records discovered for a domain.
type Result struct {
	Domain      string
	IPAddresses []string
	CNAMEs      []string
	Err         error
}

// Records returns the result in the record-type keyed form used by
// filters.IsCDNResponse.
func (r Result) Records() map[string][]string {
	records := make(map[string][]string, 2)
	if len(r.CNAMEs) > 0 {
		records["CNAME"] = r.CNAMEs
	}
	if len(r.IPAddresses) > 0 {
		records["A"] = r.IPAddresses
	}
	return records
}

// New instantiates a Resolver using the provided options.
func New(options Options) (*Resolver, error) {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	servers, err := resolveServers(options.Server)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		client:  newExchanger(timeout),
		servers: servers,
		timeout: timeout,
		limiter: options.RateLimiter,
	}, nil
}

// Resolve looks up A and AAAA records for domain. A missing domain is not an
// error: the result simply carries no addresses.
func (r *Resolver) Resolve(ctx context.Context, domain string) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	host := normalizeHost(domain)
	result := Result{Domain: host}
	if host == "" {
		result.Err = fmt.Errorf("empty hostname")
		return result
	}

	var errs error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		records, err := r.lookup(ctx, host, qtype)
		if errors.Is(err, ErrNXDomain) {
			return result
		}
		if err != nil {
			errs = combineErrors(errs, err)
			continue
		}
		for _, rr := range records {
			switch v := rr.(type) {
			case *dns.A:
				result.IPAddresses = append(result.IPAddresses, v.A.String())
			case *dns.AAAA:
				result.IPAddresses = append(result.IPAddresses, v.AAAA.String())
			case *dns.CNAME:
				result.CNAMEs = append(result.CNAMEs, strings.TrimSuffix(strings.ToLower(v.Target), "."))
			}
		}
	}

	result.IPAddresses = uniqueSorted(result.IPAddresses)
	result.CNAMEs = uniqueSorted(result.CNAMEs)
	if errs != nil && len(result.IPAddresses) == 0 {
		result.Err = errs
	}
	return result
}

func (r *Resolver) lookup(ctx context.Context, host string, qtype uint16) ([]dns.RR, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return query(ctx, r.client, r.servers, host, qtype)
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	sort.Strings(result)
	return result
}

// Server returns the configured upstream DNS servers, comma separated.
func (r *Resolver) Server() string {
	return strings.Join(r.servers, ",")
}

// Timeout returns the configured per-query timeout duration.
func (r *Resolver) Timeout() time.Duration {
	return r.timeout
}

// ParseServer normalises DNS server host[:port] strings to host:port form.
func ParseServer(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", nil
	}
	if strings.Count(address, ":") == 0 {
		return net.JoinHostPort(address, "53"), nil
	}
	if strings.HasPrefix(address, "[") && strings.HasSuffix(address, "]") {
		host := strings.TrimSuffix(strings.TrimPrefix(address, "["), "]")
		if host == "" {
			return "", fmt.Errorf("invalid dns server host")
		}
		return net.JoinHostPort(host, "53"), nil
	}
	if ip := net.ParseIP(address); ip != nil {
		return net.JoinHostPort(address, "53"), nil
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", err
	}
	if port == "" {
		port = "53"
	} else if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid dns server port: %w", err)
	}
	return net.JoinHostPort(host, port), nil
}

func resolveServers(custom string) ([]string, error) {
	servers := make([]string, 0, len(defaultDNSServers)+1)
	if parsed, err := ParseServer(custom); err != nil {
		return nil, err
	} else if parsed != "" {
		servers = append(servers, parsed)
	}

	for _, candidate := range defaultDNSServers {
		if !containsServer(servers, candidate) {
			servers = append(servers, candidate)
		}
	}
	return servers, nil
}

func containsServer(servers []string, candidate string) bool {
	for _, server := range servers {
		if strings.EqualFold(server, candidate) {
			return true
		}
	}
	return false
}
