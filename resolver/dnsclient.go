package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/yourusername/domainspotter/internal/dnspool"
)

// exchanger is the subset of *dns.Client used for queries.
type exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// ErrNXDomain is returned when every server reports the name does not exist.
var ErrNXDomain = errors.New("no such domain")

func newExchanger(timeout time.Duration) exchanger {
	return &dns.Client{
		Net:            "udp",
		Timeout:        timeout,
		Dialer:         &net.Dialer{Timeout: timeout},
		ReadTimeout:    timeout,
		WriteTimeout:   timeout,
		SingleInflight: true,
	}
}

// query asks each server in order and returns the first usable answer.
func query(ctx context.Context, client exchanger, servers []string, host string, qtype uint16) ([]dns.RR, error) {
	msg := dnspool.Query(host, qtype)
	defer dnspool.Release(msg)

	var combined error
	for _, server := range servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			combined = combineErrors(combined, fmt.Errorf("%s: %w", server, err))
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
			return resp.Answer, nil
		case dns.RcodeNameError:
			return nil, ErrNXDomain
		default:
			combined = combineErrors(combined, fmt.Errorf("%s: %s", server, dns.RcodeToString[resp.Rcode]))
		}
	}
	if combined == nil {
		combined = fmt.Errorf("no dns response for %s", host)
	}
	return nil, combined
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}

func combineErrors(existing, next error) error {
	if existing == nil {
		return next
	}
	if next == nil {
		return existing
	}
	return fmt.Errorf("%v; %w", existing, next)
}
