// Package dnspool recycles query messages for the resolver.
package dnspool

import (
	"sync"

	"github.com/miekg/dns"
)

var msgPool = sync.Pool{
	New: func() any {
		return new(dns.Msg)
	},
}

// Query returns a pooled message asking for qtype records of host, with
// recursion desired. Hand it back with Release once the exchange is done.
func Query(host string, qtype uint16) *dns.Msg {
	msg := msgPool.Get().(*dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true
	return msg
}

// Release resets msg and returns it to the pool.
func Release(msg *dns.Msg) {
	if msg == nil {
		return
	}
	reset(msg)
	msgPool.Put(msg)
}

func reset(msg *dns.Msg) {
	msg.MsgHdr = dns.MsgHdr{}
	msg.Compress = false
	clear(msg.Question)
	msg.Question = msg.Question[:0]
	clear(msg.Answer)
	msg.Answer = msg.Answer[:0]
	clear(msg.Ns)
	msg.Ns = msg.Ns[:0]
	clear(msg.Extra)
	msg.Extra = msg.Extra[:0]
}
