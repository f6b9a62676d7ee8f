package actor

import (
	"sort"

	"github.com/devshelf/devshelf/internal/model"
)

// deriveIntegrations computes which known packages a page references, by
// exact-key intersection of its dependency names and config entries against
// the package index. The result is sorted and duplicate-free.
func deriveIntegrations(page *model.Page, known map[string]string) []string {
	seen := make(map[string]struct{})
	for name := range page.Dependencies {
		if _, ok := known[name]; ok {
			seen[name] = struct{}{}
		}
	}
	for _, name := range page.Configs {
		if _, ok := known[name]; ok {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
