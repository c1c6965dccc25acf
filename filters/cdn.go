package filters

import "strings"

var knownHosting = []string{
	"cloudflare",
	"cloudfront",
	"akamai",
	"edgesuite",
	"akamaiedge",
	"fastly",
	"cdn77",
	"azureedge",
	"azurefd",
	"trafficmanager.net",
	"amazonaws.com",
	"cloudapp.net",
	"googleusercontent.com",
	"cdngc.net",
}

// IsCDNResponse heuristically determines if DNS records point at a CDN or
// large cloud front door. Only CNAME and TXT values are inspected.
func IsCDNResponse(records map[string][]string) bool {
	for recordType, values := range records {
		if recordType != "CNAME" && recordType != "TXT" {
			continue
		}
		for _, value := range values {
			value = strings.ToLower(value)
			for _, needle := range knownHosting {
				if strings.Contains(value, needle) {
					return true
				}
			}
		}
	}
	return false
}
