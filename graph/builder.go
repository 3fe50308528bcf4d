package graph

import (
	"fmt"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/spatial"
	"golang.org/x/sync/errgroup"
)

// PlanRef is an opaque reference to an external plan object (material
// blueprint, layer plan). The engine never interprets it; it only attaches
// the id to the deepest node containing its region.
type PlanRef struct {
	ID     string       `json:"id" yaml:"id"`
	Region *models.Rect `json:"region,omitempty" yaml:"region,omitempty"` // nil means world-wide
}

// Config configures a hierarchical graph build.
type Config struct {
	// MacroCellSize is the edge length of the MACRO grid cells. Must be
	// positive and at least MesoCellSize.
	MacroCellSize float64

	// MesoCellSize is the edge length of the MESO grid cells within each
	// MACRO cell. Must be positive.
	MesoCellSize float64

	// PlanRefs are attached to the graph alongside the indexed assets.
	PlanRefs []PlanRef

	// Parallel builds sibling MACRO cells concurrently. Their bounds are
	// disjoint and they consult only the read-only index, so the result is
	// identical to a sequential build.
	Parallel bool
}

// Build composes the three-tier content graph over the index's world region.
// The returned tree is immutable; it is the exported artifact.
func Build(idx *spatial.Index, cfg Config) (*Tree, error) {
	start := time.Now()

	if cfg.MacroCellSize <= 0 || cfg.MesoCellSize <= 0 {
		return nil, errors.New("cell sizes must be positive").
			WithType(models.ErrTypeConfig).
			WithTag("macro_cell_size", cfg.MacroCellSize).
			WithTag("meso_cell_size", cfg.MesoCellSize)
	}
	if cfg.MacroCellSize < cfg.MesoCellSize {
		return nil, errors.New("meso cells must not be coarser than macro cells").
			WithType(models.ErrTypeConfig).
			WithTag("macro_cell_size", cfg.MacroCellSize).
			WithTag("meso_cell_size", cfg.MesoCellSize)
	}

	world := idx.World()
	b := &builder{
		idx:       idx,
		cfg:       cfg,
		world:     world,
		leaves:    idx.LeafBounds(),
		macroRows: int(math.Ceil(world.Height() / cfg.MacroCellSize)),
		macroCols: int(math.Ceil(world.Width() / cfg.MacroCellSize)),
	}

	fragments := make([]*fragment, b.macroRows*b.macroCols)
	if cfg.Parallel {
		var g errgroup.Group
		for i := range fragments {
			g.Go(func() error {
				fragments[i] = b.buildMacroCell(i/b.macroCols, i%b.macroCols)
				return nil
			})
		}
		// barrier: fragments join before the root's child list is assembled
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range fragments {
			fragments[i] = b.buildMacroCell(i/b.macroCols, i%b.macroCols)
		}
	}

	b.assemble(fragments)
	b.assign()

	if err := b.tree.Validate(); err != nil {
		return nil, err
	}

	instrumentGraphBuild(b.tree, start)
	return b.tree, nil
}

type builder struct {
	idx    *spatial.Index
	cfg    Config
	world  models.Rect
	leaves []models.Rect

	macroRows int
	macroCols int

	tree   *Tree
	macros []macroEntry // row-major lookup used during assignment
}

type macroEntry struct {
	node     NodeIndex
	bounds   models.Rect
	mesoRows int
	mesoCols int
	mesos    []mesoEntry
}

type mesoEntry struct {
	node   NodeIndex
	bounds models.Rect
	micros []NodeIndex
}

// fragment is the subtree of a single MACRO cell with arena-local indices.
// Fragments are independent: each covers a disjoint region, so they can be
// built concurrently and spliced under the root afterwards.
type fragment struct {
	nodes    []Node
	mesoRows int
	mesoCols int
	mesos    []fragmentMeso
}

type fragmentMeso struct {
	node   int
	bounds models.Rect
	micros []int
}

func (b *builder) buildMacroCell(row, col int) *fragment {
	macroBounds := cellBounds(b.world, b.cfg.MacroCellSize, row, col)
	macroID := fmt.Sprintf("macro_r%d_c%d", row, col)

	f := &fragment{
		nodes: []Node{{
			ID:     macroID,
			Tier:   TierMacro,
			Bounds: macroBounds,
		}},
		mesoRows: int(math.Ceil(macroBounds.Height() / b.cfg.MesoCellSize)),
		mesoCols: int(math.Ceil(macroBounds.Width() / b.cfg.MesoCellSize)),
	}

	for mr := 0; mr < f.mesoRows; mr++ {
		for mc := 0; mc < f.mesoCols; mc++ {
			mesoBounds := cellBounds(macroBounds, b.cfg.MesoCellSize, mr, mc)
			mesoID := fmt.Sprintf("%s_meso_r%d_c%d", macroID, mr, mc)

			mesoLocal := len(f.nodes)
			f.nodes = append(f.nodes, Node{
				ID:     mesoID,
				Tier:   TierMeso,
				Bounds: mesoBounds,
			})
			f.nodes[0].Children = append(f.nodes[0].Children, NodeIndex(mesoLocal))

			meso := fragmentMeso{node: mesoLocal, bounds: mesoBounds}

			// one MICRO node per index leaf region overlapping the meso
			// cell, clipped to the cell
			for _, leaf := range b.leaves {
				clip := mesoBounds.Intersection(leaf)
				if !clip.IsPositive() {
					continue
				}
				microLocal := len(f.nodes)
				f.nodes = append(f.nodes, Node{
					ID:     fmt.Sprintf("%s_micro_%d", mesoID, len(meso.micros)),
					Tier:   TierMicro,
					Bounds: clip,
					Parent: NodeIndex(mesoLocal), // local, fixed up on splice
				})
				f.nodes[mesoLocal].Children = append(f.nodes[mesoLocal].Children, NodeIndex(microLocal))
				meso.micros = append(meso.micros, microLocal)
			}

			f.mesos = append(f.mesos, meso)
		}
	}

	return f
}

// assemble splices the macro fragments into a single arena under a synthetic
// MACRO-tier root spanning the whole world.
func (b *builder) assemble(fragments []*fragment) {
	t := &Tree{
		world: b.world,
		nodes: []Node{{
			ID:     "world_root",
			Tier:   TierMacro,
			Bounds: b.world,
			Parent: NilNode,
		}},
		byID: make(map[string]NodeIndex),
	}
	t.byID["world_root"] = 0

	b.macros = make([]macroEntry, 0, len(fragments))

	for _, f := range fragments {
		base := NodeIndex(len(t.nodes))

		for local, n := range f.nodes {
			if local == 0 {
				n.Parent = 0
			} else {
				n.Parent += base
			}
			for i := range n.Children {
				n.Children[i] += base
			}
			t.byID[n.ID] = base + NodeIndex(local)
			t.nodes = append(t.nodes, n)
		}
		t.nodes[0].Children = append(t.nodes[0].Children, base)

		entry := macroEntry{
			node:     base,
			bounds:   f.nodes[0].Bounds,
			mesoRows: f.mesoRows,
			mesoCols: f.mesoCols,
		}
		for _, m := range f.mesos {
			me := mesoEntry{node: base + NodeIndex(m.node), bounds: m.bounds}
			for _, mi := range m.micros {
				me.micros = append(me.micros, base+NodeIndex(mi))
			}
			entry.mesos = append(entry.mesos, me)
		}
		b.macros = append(b.macros, entry)
	}

	b.tree = t
}

// assign places every indexed asset and plan reference on the deepest node
// whose bounds fully contain it: MICRO, else MESO, else MACRO, else root.
func (b *builder) assign() {
	t := b.tree

	for _, a := range b.idx.Assets() {
		target := b.locate(a.Footprint, a.ID)
		t.nodes[target].AssetIDs = append(t.nodes[target].AssetIDs, a.ID)
	}

	for _, p := range b.cfg.PlanRefs {
		target := NodeIndex(0)
		if p.Region != nil {
			target = b.locate(*p.Region, p.ID)
		}
		t.nodes[target].PlanRefIDs = append(t.nodes[target].PlanRefIDs, p.ID)
	}
}

func (b *builder) locate(f models.Rect, contentID string) NodeIndex {
	macro := b.macroFor(f)
	if !macro.bounds.ContainsFootprint(f) {
		b.tree.diags.Add(models.WarnStraddleReassignment, contentID,
			"spans macro cells, assigned to the world root")
		instrumentStraddle()
		return 0
	}

	meso := macro.mesoFor(f, b.cfg.MesoCellSize)
	if !meso.bounds.ContainsFootprint(f) {
		b.tree.diags.Add(models.WarnStraddleReassignment, contentID,
			"spans meso cells, assigned to the enclosing macro node")
		instrumentStraddle()
		return macro.node
	}

	for _, mi := range meso.micros {
		if b.tree.nodes[mi].Bounds.ContainsFootprint(f) {
			return mi
		}
	}
	return meso.node
}

// macroFor returns the canonical macro cell for a footprint, derived from its
// min corner so content exactly on a cell boundary has exactly one home.
func (b *builder) macroFor(f models.Rect) *macroEntry {
	col := cellCoord(f.Min.X, b.world.Min.X, b.cfg.MacroCellSize, b.macroCols)
	row := cellCoord(f.Min.Y, b.world.Min.Y, b.cfg.MacroCellSize, b.macroRows)
	return &b.macros[row*b.macroCols+col]
}

func (m *macroEntry) mesoFor(f models.Rect, mesoSize float64) *mesoEntry {
	col := cellCoord(f.Min.X, m.bounds.Min.X, mesoSize, m.mesoCols)
	row := cellCoord(f.Min.Y, m.bounds.Min.Y, mesoSize, m.mesoRows)
	return &m.mesos[row*m.mesoCols+col]
}

func cellCoord(v, origin, size float64, cells int) int {
	c := int(math.Floor((v - origin) / size))
	if c < 0 {
		return 0
	}
	if c >= cells {
		return cells - 1
	}
	return c
}

// cellBounds returns the row/col cell of a uniform grid over parent,
// truncated at the parent's max edges.
func cellBounds(parent models.Rect, size float64, row, col int) models.Rect {
	minX := parent.Min.X + float64(col)*size
	minY := parent.Min.Y + float64(row)*size
	return models.NewRect(
		minX,
		minY,
		math.Min(minX+size, parent.Max.X),
		math.Min(minY+size, parent.Max.Y),
	)
}
