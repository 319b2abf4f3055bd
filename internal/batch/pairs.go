package batch

import (
	"cmp"
	"slices"

	"github.com/GriffinCanCode/phash/internal/phash"
)

// Pair is two inputs whose fingerprints are within the threshold.
type Pair struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Distance int    `json:"distance"`
}

// Pairs compares every successful result with every other and returns the
// pairs at distance <= threshold, closest first, then by path. Results whose
// fingerprints differ in length are never paired.
func Pairs(results []Result, threshold int) []Pair {
	ok := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Err == nil && !r.Hash.IsZero() {
			ok = append(ok, r)
		}
	}

	var pairs []Pair
	for i := 0; i < len(ok); i++ {
		for j := i + 1; j < len(ok); j++ {
			d, err := phash.Distance(ok[i].Hash, ok[j].Hash)
			if err != nil || d > threshold {
				continue
			}
			a, b := ok[i].Path, ok[j].Path
			if b < a {
				a, b = b, a
			}
			pairs = append(pairs, Pair{A: a, B: b, Distance: d})
		}
	}

	slices.SortFunc(pairs, func(x, y Pair) int {
		return cmp.Or(
			cmp.Compare(x.Distance, y.Distance),
			cmp.Compare(x.A, y.A),
			cmp.Compare(x.B, y.B),
		)
	})
	return pairs
}

// Groups clusters paths connected by pairs, so A~B and B~C give {A, B, C}.
// Groups are sorted internally and by their first path.
func Groups(pairs []Pair) [][]string {
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok || p == x {
			parent[x] = x
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	for _, p := range pairs {
		ra, rb := find(p.A), find(p.B)
		if ra != rb {
			if rb < ra {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	members := make(map[string][]string)
	for x := range parent {
		r := find(x)
		members[r] = append(members[r], x)
	}
	groups := make([][]string, 0, len(members))
	for _, m := range members {
		slices.Sort(m)
		groups = append(groups, m)
	}
	slices.SortFunc(groups, func(a, b []string) int { return cmp.Compare(a[0], b[0]) })
	return groups
}
