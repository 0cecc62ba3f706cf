package stream

import "strings"

// MatchesHost reports whether host matches any of the extractor patterns.
// A pattern is a list of domain labels separated by '.', '|' or ':' that
// must all appear among the host's labels:
//
//	MatchesHost("www.absnews.com", "absnews:videos")        // false
//	MatchesHost("www.absnews.com", "absnews.com")           // true
//	MatchesHost("videos.absnews.com", "absnews.com:videos") // true
func MatchesHost(host string, patterns ...string) bool {
	for _, pattern := range patterns {
		if matchesPattern(host, pattern) {
			return true
		}
	}
	return false
}

func matchesPattern(host, pattern string) bool {
	domains := strings.FieldsFunc(host, func(r rune) bool { return r == '.' })
	mandatory := strings.FieldsFunc(pattern, func(r rune) bool {
		return r == '.' || r == '|' || r == ':'
	})
	for _, m := range mandatory {
		found := false
		for _, d := range domains {
			if strings.EqualFold(d, m) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
