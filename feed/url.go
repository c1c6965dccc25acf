package feed

import (
	"encoding/base64"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the WHOISDS listing endpoint. The doubled slash is what
	// the site itself links to.
	DefaultBaseURL = "https://whoisds.com//whois-database/newly-registered-domains/"

	// DefaultLag is how many days behind "now" the requested archive is. The
	// current and previous day are frequently not published yet.
	DefaultLag = 2

	dateLayout = "2006-01-02"
)

// TargetDate returns the calendar day lagDays before now in now's location.
func TargetDate(now time.Time, lagDays int) time.Time {
	if lagDays < 0 {
		lagDays = 0
	}
	y, m, d := now.Date()
	return time.Date(y, m, d-lagDays, 0, 0, 0, 0, now.Location())
}

// FormatDate renders date as YYYY-MM-DD.
func FormatDate(date time.Time) string {
	return date.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD value in the provided location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
}

// Token encodes the archive file name for date the way the feed indexes it.
func Token(date time.Time) string {
	name := FormatDate(date) + ".zip"
	return base64.StdEncoding.EncodeToString([]byte(name))
}

// ArchiveURL joins the listing endpoint and an encoded token.
func ArchiveURL(baseURL, token string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + token + "/nrd"
}
