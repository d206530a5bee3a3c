package timeutil

import (
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter converts the time strings servers put in Retry-After style
// headers into a duration. Accepted forms, in order of preference:
//
//   - integer seconds: "120"
//   - Go/provider duration strings: "1s", "6m0s"
//   - HTTP-date: "Mon, 02 Jan 2006 15:04:05 GMT"
//
// Anything unparseable, as well as dates already in the past, returns 0.
func ParseRetryAfter(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}

	if at, err := time.Parse(time.RFC1123, s); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}

// UnixMsToTime converts a millisecond UNIX timestamp to a time.Time.
func UnixMsToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// IsInFuture reports whether a millisecond timestamp is ahead of now.
func IsInFuture(ms int64) bool {
	return ms > time.Now().UnixMilli()
}
