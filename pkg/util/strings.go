package util

import "strings"

// SplitList splits a comma separated list, trimming and lower-casing entries.
// Empty entries and duplicates are dropped; order is kept.
func SplitList(s string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		v := strings.ToLower(strings.TrimSpace(part))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
