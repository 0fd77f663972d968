// Package strings holds small string helpers shared by config parsing.
package strings

import (
	"strings"
)

// SplitList splits a comma separated value, trimming each element and
// dropping empties and repeats. Order is preserved; nil when nothing is left.
func SplitList(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
