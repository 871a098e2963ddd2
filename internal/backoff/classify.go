package backoff

import "strings"

// ClassifyTransient retries errors whose text indicates a rate limit,
// timeout, or upstream gateway problem, matching spec's §4.2 retriable
// set: explicit rate-limited indicator (429 / "too many requests"),
// "timeout", "gateway".
func ClassifyTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limited"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "gateway"):
		return true
	default:
		return false
	}
}
