// Package analysis diagnoses the stored category hierarchy: parent-link
// cycles, dangling parents, duplicate ids and depth statistics. It explains
// why a category set cannot be turned into a filter tree.
package analysis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// DefaultCycleBreakLimit caps the number of cut suggestions in a report.
const DefaultCycleBreakLimit = 5

// Report summarizes a category hierarchy.
type Report struct {
	Categories int   `json:"categories"`
	TopLevel   []int `json:"top_level"`
	Leaves     int   `json:"leaves"`
	MaxDepth   int   `json:"max_depth"`

	// DepthHistogram[d] is the number of categories at depth d (top-level
	// categories have depth 1). Categories caught in a cycle are not counted.
	DepthHistogram []int `json:"depth_histogram"`

	Duplicates  []int `json:"duplicates,omitempty"`
	SelfParents []int `json:"self_parents,omitempty"`
	// DanglingParents lists categories whose parent id does not exist; they are
	// shown as top-level categories.
	DanglingParents []int `json:"dangling_parents,omitempty"`

	// Cycles are elementary parent-link cycles, each rotated to start at its
	// smallest id and listed child first.
	Cycles      [][]int      `json:"cycles,omitempty"`
	CycleBreaks []CycleBreak `json:"cycle_breaks,omitempty"`
}

// CycleBreak suggests clearing one parent link.
type CycleBreak struct {
	Category int   `json:"category"`
	Parent   int   `json:"parent"`
	InCycles []int `json:"in_cycles"`
	// Collateral is the number of direct children of Category that move with
	// it when the link is cut.
	Collateral int    `json:"collateral"`
	Rationale  string `json:"rationale"`
}

// Healthy reports whether the hierarchy can be built into a filter tree.
func (r *Report) Healthy() bool {
	return len(r.Duplicates) == 0 && len(r.SelfParents) == 0 && len(r.Cycles) == 0
}

// Summary is a one-line description for status bars and logs.
func (r *Report) Summary() string {
	if r.Healthy() {
		return fmt.Sprintf("%d categories, %d leaves, depth %d", r.Categories, r.Leaves, r.MaxDepth)
	}
	return fmt.Sprintf("%d categories: %d cycles, %d self-parents, %d duplicate ids",
		r.Categories, len(r.Cycles), len(r.SelfParents), len(r.Duplicates))
}

// AnalyzeCategories builds the parent-link graph of cats and reports on it.
// limit caps CycleBreaks; values below 1 use DefaultCycleBreakLimit.
func AnalyzeCategories(cats []model.Category, limit int) *Report {
	if limit < 1 {
		limit = DefaultCycleBreakLimit
	}

	r := &Report{Categories: len(cats)}
	parent := make(map[int]int, len(cats))
	seen := make(map[int]bool, len(cats))
	g := simple.NewDirectedGraph()

	for _, c := range cats {
		if seen[c.ID] {
			r.Duplicates = append(r.Duplicates, c.ID)
			continue
		}
		seen[c.ID] = true
		g.AddNode(simple.Node(c.ID))
	}

	children := make(map[int]int, len(cats))
	counted := make(map[int]bool, len(cats))
	for _, c := range cats {
		if counted[c.ID] {
			continue
		}
		counted[c.ID] = true

		switch {
		case c.ParentID == nil:
			r.TopLevel = append(r.TopLevel, c.ID)
		case *c.ParentID == c.ID:
			// simple graphs reject self edges
			r.SelfParents = append(r.SelfParents, c.ID)
		case !seen[*c.ParentID]:
			r.DanglingParents = append(r.DanglingParents, c.ID)
			r.TopLevel = append(r.TopLevel, c.ID)
		default:
			parent[c.ID] = *c.ParentID
			children[*c.ParentID]++
			g.SetEdge(g.NewEdge(simple.Node(c.ID), simple.Node(*c.ParentID)))
		}
	}

	for id := range seen {
		if children[id] == 0 {
			r.Leaves++
		}
	}

	r.Cycles = normalizeCycles(topo.DirectedCyclesIn(g))
	r.CycleBreaks = cycleBreaks(r.Cycles, parent, children, limit)
	r.DepthHistogram, r.MaxDepth = depths(seen, parent, r.SelfParents)

	sort.Ints(r.TopLevel)
	sort.Ints(r.Duplicates)
	sort.Ints(r.SelfParents)
	sort.Ints(r.DanglingParents)
	return r
}

func normalizeCycles(raw [][]graph.Node) [][]int {
	cycles := make([][]int, 0, len(raw))
	for _, c := range raw {
		ids := make([]int, 0, len(c))
		for _, n := range c {
			ids = append(ids, int(n.ID()))
		}
		// Cycles come back closed (first node repeated at the end).
		if len(ids) > 1 && ids[0] == ids[len(ids)-1] {
			ids = ids[:len(ids)-1]
		}
		if len(ids) == 0 {
			continue
		}
		start := 0
		for i, id := range ids {
			if id < ids[start] {
				start = i
			}
		}
		rotated := make([]int, 0, len(ids))
		rotated = append(rotated, ids[start:]...)
		cycles = append(cycles, append(rotated, ids[:start]...))
	}
	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i], cycles[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	if len(cycles) == 0 {
		return nil
	}
	return cycles
}

// cycleBreaks ranks parent links by the number of cycles they appear in;
// cutting the most shared link first resolves the most cycles.
func cycleBreaks(cycles [][]int, parent, children map[int]int, limit int) []CycleBreak {
	if len(cycles) == 0 {
		return nil
	}
	type edge struct{ child, parent int }
	freq := make(map[edge][]int)
	for i, c := range cycles {
		for _, id := range c {
			e := edge{child: id, parent: parent[id]}
			freq[e] = append(freq[e], i)
		}
	}

	edges := make([]edge, 0, len(freq))
	for e := range freq {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if len(freq[a]) != len(freq[b]) {
			return len(freq[a]) > len(freq[b])
		}
		if children[a.child] != children[b.child] {
			return children[a.child] < children[b.child]
		}
		return a.child < b.child
	})

	out := make([]CycleBreak, 0, limit)
	for _, e := range edges {
		if len(out) == limit {
			break
		}
		out = append(out, CycleBreak{
			Category:   e.child,
			Parent:     e.parent,
			InCycles:   freq[e],
			Collateral: children[e.child],
			Rationale:  fmt.Sprintf("clears %d of %d cycles", len(freq[e]), len(cycles)),
		})
	}
	return out
}

// depths walks every parent chain with memoization. Chains that run into a
// cycle or a self-parent get no depth.
func depths(ids map[int]bool, parent map[int]int, selfParents []int) ([]int, int) {
	const (
		unknown = 0
		onStack = -1
		broken  = -2
	)
	depth := make(map[int]int, len(ids))
	for _, id := range selfParents {
		depth[id] = broken
	}

	var resolve func(id int) int
	resolve = func(id int) int {
		switch d := depth[id]; d {
		case onStack:
			depth[id] = broken
			return broken
		case unknown:
		default:
			return d
		}
		p, ok := parent[id]
		if !ok {
			depth[id] = 1
			return 1
		}
		depth[id] = onStack
		pd := resolve(p)
		if pd == broken || depth[id] == broken {
			depth[id] = broken
			return broken
		}
		depth[id] = pd + 1
		return pd + 1
	}

	var hist []int
	deepest := 0
	for id := range ids {
		d := resolve(id)
		if d <= 0 {
			continue
		}
		for len(hist) <= d {
			hist = append(hist, 0)
		}
		hist[d]++
		if d > deepest {
			deepest = d
		}
	}
	return hist, deepest
}
