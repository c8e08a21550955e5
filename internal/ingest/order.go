package ingest

import (
	"regexp"
	"sort"
	"strconv"
)

var digitRun = regexp.MustCompile(`\d+`)

// OrderByFilename returns the indices of names sorted by the last integer
// in each name, which is usually the page number. A name without digits
// sorts by its own index, so such names keep their relative order.
func OrderByFilename(names []string) []int {
	type keyed struct {
		key, index int
	}
	keys := make([]keyed, len(names))
	for i, name := range names {
		keys[i] = keyed{key: i, index: i}
		runs := digitRun.FindAllString(name, -1)
		if len(runs) == 0 {
			continue
		}
		if n, err := strconv.Atoi(runs[len(runs)-1]); err == nil {
			keys[i].key = n
		}
	}
	sort.SliceStable(keys, func(a, b int) bool { return keys[a].key < keys[b].key })

	order := make([]int, len(keys))
	for i, k := range keys {
		order[i] = k.index
	}
	return order
}
