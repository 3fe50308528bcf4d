// Package export serializes hierarchical content graphs into the JSON
// boundary format consumed by the host-engine importer, and reconstructs
// them. The containment and exactly-once invariants survive the round trip
// because both directions validate the tree.
package export

import (
	"io"
	"os"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/google/uuid"
	"github.com/jeralabs/jera/graph"
	"github.com/jeralabs/jera/models"
	"github.com/segmentio/encoding/json"
)

// Document is the exported artifact.
type Document struct {
	BuildID     string       `json:"build_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	World       models.Rect  `json:"world"`
	Nodes       []NodeRecord `json:"nodes"`
}

// NodeRecord flattens a graph node. Links are by stable id so the document
// does not depend on arena layout.
type NodeRecord struct {
	ID         string      `json:"id"`
	Tier       string      `json:"tier"`
	Bounds     models.Rect `json:"bounds"`
	ParentID   string      `json:"parent_id,omitempty"`
	ChildIDs   []string    `json:"child_ids,omitempty"`
	AssetIDs   []string    `json:"asset_ids,omitempty"`
	PlanRefIDs []string    `json:"plan_ref_ids,omitempty"`
}

// Encode validates the tree and serializes it. A tree failing validation is
// never written out.
func Encode(t *graph.Tree) ([]byte, error) {
	doc, err := newDocument(t)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Write streams the document to w.
func Write(w io.Writer, t *graph.Tree) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile writes the document to path.
func WriteFile(path string, t *graph.Tree) error {
	data, err := Encode(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("writing graph export failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}

// Decode reconstructs a validated tree from its serialized form.
func Decode(data []byte) (*graph.Tree, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("decoding graph export failed").Wrap(err)
	}

	byID := make(map[string]graph.NodeIndex, len(doc.Nodes))
	for i, r := range doc.Nodes {
		if _, ok := byID[r.ID]; ok {
			return nil, errors.New("duplicate node id in graph export").
				WithType(models.ErrTypeGraphConsistency).
				WithTag("node_id", r.ID)
		}
		byID[r.ID] = graph.NodeIndex(i)
	}

	nodes := make([]graph.Node, 0, len(doc.Nodes))
	for _, r := range doc.Nodes {
		n := graph.Node{
			ID:         r.ID,
			Tier:       graph.Tier(r.Tier),
			Bounds:     r.Bounds,
			Parent:     graph.NilNode,
			AssetIDs:   r.AssetIDs,
			PlanRefIDs: r.PlanRefIDs,
		}
		if r.ParentID != "" {
			p, ok := byID[r.ParentID]
			if !ok {
				return nil, errors.New("unknown parent id in graph export").
					WithType(models.ErrTypeGraphConsistency).
					WithTag("node_id", r.ID).
					WithTag("parent_id", r.ParentID)
			}
			n.Parent = p
		}
		for _, cid := range r.ChildIDs {
			c, ok := byID[cid]
			if !ok {
				return nil, errors.New("unknown child id in graph export").
					WithType(models.ErrTypeGraphConsistency).
					WithTag("node_id", r.ID).
					WithTag("child_id", cid)
			}
			n.Children = append(n.Children, c)
		}
		nodes = append(nodes, n)
	}

	return graph.NewTree(doc.World, nodes)
}

// ReadFile reads and reconstructs a tree from path.
func ReadFile(path string) (*graph.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading graph export failed").
			WithTag("path", path).
			Wrap(err)
	}
	return Decode(data)
}

func newDocument(t *graph.Tree) (*Document, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	nodes := t.Nodes()
	records := make([]NodeRecord, 0, len(nodes))
	for _, n := range nodes {
		r := NodeRecord{
			ID:         n.ID,
			Tier:       string(n.Tier),
			Bounds:     n.Bounds,
			AssetIDs:   n.AssetIDs,
			PlanRefIDs: n.PlanRefIDs,
		}
		if n.Parent != graph.NilNode {
			r.ParentID = nodes[n.Parent].ID
		}
		for _, c := range n.Children {
			r.ChildIDs = append(r.ChildIDs, nodes[c].ID)
		}
		records = append(records, r)
	}

	return &Document{
		BuildID:     uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		World:       t.World(),
		Nodes:       records,
	}, nil
}
