package spatial

import (
	"fmt"
	"sort"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/models"
)

const (
	// DefaultMaxAssetsPerNode is the leaf capacity before a split.
	DefaultMaxAssetsPerNode = 8

	// DefaultMaxDepth bounds the quadtree depth.
	DefaultMaxDepth = 8
)

// Options configures a quadtree build.
type Options struct {
	// MaxAssetsPerNode is the number of assets a leaf holds before it is
	// split into quadrants. Must be at least 1.
	MaxAssetsPerNode int

	// MaxDepth is the maximum node depth. At MaxDepth a leaf is allowed to
	// overflow its capacity; the overflow is reported as a dense region
	// warning, never as a failure. Must not be negative.
	MaxDepth int
}

func DefaultOptions() Options {
	return Options{
		MaxAssetsPerNode: DefaultMaxAssetsPerNode,
		MaxDepth:         DefaultMaxDepth,
	}
}

// Index is a quadtree over a fixed world region. It is built once from the
// full asset list and is read-only afterwards; rebuilds produce a new Index
// that replaces the old one through a Store.
type Index struct {
	world  models.Rect
	opts   Options
	root   *node
	assets map[string]models.AssetRef
	diags  models.Diagnostics
}

// node quadrant order. The split line itself belongs to the east/north
// quadrants, matching the half-open region convention in models.
const (
	quadNW = iota
	quadNE
	quadSW
	quadSE
)

type node struct {
	bounds   models.Rect
	depth    int
	assets   []models.AssetRef
	children []*node // nil, or exactly 4
}

// Build constructs a fresh index from the full asset list. An asset is indexed
// only when its footprint is fully contained in world and a query of the full
// world would return it; anything else, and any id reuse, is excluded and
// reported as skipped.
func Build(world models.Rect, assets []models.AssetRef, opts Options) (*Index, error) {
	start := time.Now()

	if !world.IsPositive() {
		return nil, errors.New("world bounds must span a positive area").
			WithType(models.ErrTypeConfig).
			WithTag("width", world.Width()).
			WithTag("height", world.Height())
	}
	if opts.MaxAssetsPerNode < 1 {
		return nil, errors.New("max assets per node must be at least 1").
			WithType(models.ErrTypeConfig).
			WithTag("max_assets_per_node", opts.MaxAssetsPerNode)
	}
	if opts.MaxDepth < 0 {
		return nil, errors.New("max depth must not be negative").
			WithType(models.ErrTypeConfig).
			WithTag("max_depth", opts.MaxDepth)
	}

	idx := &Index{
		world:  world,
		opts:   opts,
		root:   &node{bounds: world},
		assets: make(map[string]models.AssetRef, len(assets)),
	}

	for _, a := range assets {
		if _, ok := idx.assets[a.ID]; ok {
			idx.diags.Add(models.WarnSkippedAsset, a.ID, "duplicate asset id")
			continue
		}
		if !world.ContainsFootprint(a.Footprint) {
			idx.diags.Add(models.WarnSkippedAsset, a.ID, "footprint outside world bounds")
			continue
		}
		// a footprint starting on the world's max edge lies beyond every
		// half-open region, so no query could ever return it
		if !world.IntersectsFootprint(a.Footprint) {
			idx.diags.Add(models.WarnSkippedAsset, a.ID, "footprint pinned to the world max edge")
			continue
		}
		idx.assets[a.ID] = a
		idx.root.insert(a, opts)
	}

	idx.root.walk(func(n *node) {
		if n.children == nil && len(n.assets) > opts.MaxAssetsPerNode {
			idx.diags.Add(models.WarnDenseRegion, "", denseRegionDetail(n))
		}
	})

	instrumentIndexBuild(len(idx.assets), len(idx.diags.ByKind(models.WarnSkippedAsset)), start)
	return idx, nil
}

// QueryRegion returns every indexed asset whose footprint overlaps the given
// half-open region, each exactly once, sorted by id.
func (idx *Index) QueryRegion(bounds models.Rect) []models.AssetRef {
	instrumentIndexQuery()

	hits := make(map[string]models.AssetRef)
	idx.root.query(bounds, hits)
	return sortedByID(hits)
}

// QueryRegionWithLOD applies the per-category LOD predicate on top of the
// spatial filter.
func (idx *Index) QueryRegionWithLOD(bounds models.Rect, lod models.LODLevel) []models.AssetRef {
	all := idx.QueryRegion(bounds)
	visible := all[:0]
	for _, a := range all {
		if a.Category.VisibleAt(lod) {
			visible = append(visible, a)
		}
	}
	return visible
}

// World returns the region the index was built over.
func (idx *Index) World() models.Rect {
	return idx.world
}

// Assets returns every indexed asset, sorted by id.
func (idx *Index) Assets() []models.AssetRef {
	return sortedByID(idx.assets)
}

// AssetCount returns the number of indexed assets.
func (idx *Index) AssetCount() int {
	return len(idx.assets)
}

// Diagnostics returns the non-fatal warnings collected during the build.
func (idx *Index) Diagnostics() models.Diagnostics {
	return idx.diags
}

// LeafBounds returns the bounds of every leaf in deterministic traversal
// order. The leaves partition the world exactly; the graph builder derives
// its MICRO regions from them.
func (idx *Index) LeafBounds() []models.Rect {
	var out []models.Rect
	idx.root.walk(func(n *node) {
		if n.children == nil {
			out = append(out, n.bounds)
		}
	})
	return out
}

func (n *node) insert(a models.AssetRef, opts Options) {
	if n.children != nil {
		if c := n.childFor(a.Footprint); c != nil {
			c.insert(a, opts)
			return
		}
		// straddles a quadrant boundary, stays at this level
		n.assets = append(n.assets, a)
		return
	}

	n.assets = append(n.assets, a)
	if len(n.assets) > opts.MaxAssetsPerNode && n.depth < opts.MaxDepth {
		n.split(opts)
	}
}

// split partitions the node's bounds into four equal quadrants and pushes
// every held asset into the quadrant that fully contains it. A quadrant left
// over capacity splits again, except when all of its footprints are identical:
// no split can ever separate those, so the leaf is allowed to overflow and is
// reported as a dense region after the build.
func (n *node) split(opts Options) {
	mid := n.bounds.Center()
	b := n.bounds

	n.children = []*node{
		quadNW: {bounds: models.NewRect(b.Min.X, mid.Y, mid.X, b.Max.Y), depth: n.depth + 1},
		quadNE: {bounds: models.NewRect(mid.X, mid.Y, b.Max.X, b.Max.Y), depth: n.depth + 1},
		quadSW: {bounds: models.NewRect(b.Min.X, b.Min.Y, mid.X, mid.Y), depth: n.depth + 1},
		quadSE: {bounds: models.NewRect(mid.X, b.Min.Y, b.Max.X, mid.Y), depth: n.depth + 1},
	}

	held := n.assets
	n.assets = nil
	for _, a := range held {
		if c := n.childFor(a.Footprint); c != nil {
			c.assets = append(c.assets, a)
		} else {
			n.assets = append(n.assets, a)
		}
	}

	for _, c := range n.children {
		if len(c.assets) > opts.MaxAssetsPerNode && c.depth < opts.MaxDepth && !allSameFootprint(c.assets) {
			c.split(opts)
		}
	}
}

// allSameFootprint reports whether every asset shares one footprint.
func allSameFootprint(assets []models.AssetRef) bool {
	for _, a := range assets[1:] {
		if a.Footprint != assets[0].Footprint {
			return false
		}
	}
	return true
}

// childFor returns the quadrant that fully contains the footprint, or nil
// when the footprint straddles a quadrant boundary. Content exactly on the
// split line belongs to the east/north side so it fits exactly one quadrant.
func (n *node) childFor(f models.Rect) *node {
	if n.children == nil {
		return nil
	}
	mid := n.bounds.Center()

	east := f.Min.X >= mid.X
	west := !east && f.Max.X <= mid.X
	north := f.Min.Y >= mid.Y
	south := !north && f.Max.Y <= mid.Y

	switch {
	case west && north:
		return n.children[quadNW]
	case east && north:
		return n.children[quadNE]
	case west && south:
		return n.children[quadSW]
	case east && south:
		return n.children[quadSE]
	}
	return nil
}

func (n *node) query(bounds models.Rect, hits map[string]models.AssetRef) {
	for _, a := range n.assets {
		if bounds.IntersectsFootprint(a.Footprint) {
			hits[a.ID] = a
		}
	}
	if n.children == nil {
		return
	}
	for _, c := range n.children {
		if c.bounds.Overlaps(bounds) {
			c.query(bounds, hits)
		}
	}
}

func (n *node) walk(visit func(*node)) {
	visit(n)
	for _, c := range n.children {
		c.walk(visit)
	}
}

func denseRegionDetail(n *node) string {
	b := n.bounds
	return fmt.Sprintf("overfull leaf holds %d assets in [%g,%g]x[%g,%g]",
		len(n.assets), b.Min.X, b.Max.X, b.Min.Y, b.Max.Y)
}

func sortedByID(m map[string]models.AssetRef) []models.AssetRef {
	out := make([]models.AssetRef, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
