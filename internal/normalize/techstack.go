package normalize

import (
	"sort"
	"strings"
)

// NormalizeTechStack lowercases, trims, deduplicates and sorts technology
// names. The result is a fixed point: running it on its own output changes
// nothing, which keeps display and exact-match filtering stable.
func NormalizeTechStack(raw []string) []string {
	seen := make(map[string]bool)
	for _, tech := range raw {
		tech = strings.ToLower(strings.TrimSpace(tech))
		if tech == "" {
			continue
		}
		seen[tech] = true
	}

	stack := make([]string, 0, len(seen))
	for tech := range seen {
		stack = append(stack, tech)
	}
	sort.Strings(stack)
	return stack
}
