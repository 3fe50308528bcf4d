package graph

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/models"
)

// Tier labels a node of the hierarchical content graph, from coarsest world
// subdivision to finest placement-level detail.
type Tier string

const (
	TierMacro Tier = "MACRO"
	TierMeso  Tier = "MESO"
	TierMicro Tier = "MICRO"
)

// NodeIndex addresses a node inside a Tree's arena. Nodes reference parents
// and children by index rather than by pointer so the structure has no
// ownership cycles.
type NodeIndex int32

// NilNode is the parent index of the root.
const NilNode NodeIndex = -1

// Node is one node of the content graph. MACRO nodes own MESO children and
// MESO nodes own MICRO children; MICRO nodes have none. Content references
// (asset ids and plan reference ids) live on the deepest node whose bounds
// fully contain them.
type Node struct {
	ID         string
	Tier       Tier
	Bounds     models.Rect
	Parent     NodeIndex
	Children   []NodeIndex
	AssetIDs   []string
	PlanRefIDs []string
}

// Tree is an immutable hierarchical content graph stored in a flat arena.
// Index 0 is the synthetic MACRO-tier root spanning the whole world.
type Tree struct {
	world models.Rect
	nodes []Node
	byID  map[string]NodeIndex
	diags models.Diagnostics
}

// NewTree assembles a tree from an arena and validates it. Used by the
// exporter to reconstruct a tree from its serialized form.
func NewTree(world models.Rect, nodes []Node) (*Tree, error) {
	t := &Tree{
		world: world,
		nodes: nodes,
		byID:  make(map[string]NodeIndex, len(nodes)),
	}
	for i, n := range nodes {
		if _, ok := t.byID[n.ID]; ok {
			return nil, errors.New("duplicate node id").
				WithType(models.ErrTypeGraphConsistency).
				WithTag("node_id", n.ID)
		}
		t.byID[n.ID] = NodeIndex(i)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) World() models.Rect {
	return t.world
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Root() *Node {
	return &t.nodes[0]
}

func (t *Tree) Node(i NodeIndex) *Node {
	return &t.nodes[i]
}

// NodeByID looks a node up by its stable id.
func (t *Tree) NodeByID(id string) (*Node, bool) {
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return &t.nodes[i], true
}

// Nodes returns a copy of the arena in index order.
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Diagnostics returns the non-fatal warnings collected while building.
func (t *Tree) Diagnostics() models.Diagnostics {
	return t.diags
}

// CountByTier returns the number of nodes per tier.
func (t *Tree) CountByTier() map[Tier]int {
	out := make(map[Tier]int, 3)
	for _, n := range t.nodes {
		out[n.Tier]++
	}
	return out
}

// Validate re-checks the structural invariants: parent/child links are
// mutually consistent, every child's bounds is contained in its parent's,
// the root spans the world, and every asset id appears on exactly one node.
// A violation is a programming error, reported as a graph consistency error.
func (t *Tree) Validate() error {
	if len(t.nodes) == 0 {
		return errors.New("tree has no root").
			WithType(models.ErrTypeGraphConsistency)
	}

	root := t.nodes[0]
	if root.Parent != NilNode {
		return errors.New("root must not have a parent").
			WithType(models.ErrTypeGraphConsistency).
			WithTag("node_id", root.ID)
	}
	if root.Bounds != t.world {
		return errors.New("root bounds must span the world").
			WithType(models.ErrTypeGraphConsistency).
			WithTag("node_id", root.ID)
	}

	assetOwners := make(map[string]string)

	for i, n := range t.nodes {
		for _, c := range n.Children {
			if c <= 0 || int(c) >= len(t.nodes) {
				return errors.New("child index out of range").
					WithType(models.ErrTypeGraphConsistency).
					WithTag("node_id", n.ID).
					WithTag("child_index", int(c))
			}
			child := t.nodes[c]
			if child.Parent != NodeIndex(i) {
				return errors.New("child does not reference its parent").
					WithType(models.ErrTypeGraphConsistency).
					WithTag("node_id", n.ID).
					WithTag("child_id", child.ID)
			}
			if !n.Bounds.ContainsFootprint(child.Bounds) {
				return errors.New("child bounds escape parent bounds").
					WithType(models.ErrTypeGraphConsistency).
					WithTag("node_id", n.ID).
					WithTag("child_id", child.ID)
			}
		}

		for _, id := range n.AssetIDs {
			if owner, ok := assetOwners[id]; ok {
				return errors.New("asset assigned to more than one node").
					WithType(models.ErrTypeGraphConsistency).
					WithTag("asset_id", id).
					WithTag("node_id", n.ID).
					WithTag("other_node_id", owner)
			}
			assetOwners[id] = n.ID
		}
	}

	return nil
}
