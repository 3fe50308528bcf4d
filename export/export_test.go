package export

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jeralabs/jera/graph"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/spatial"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) *graph.Tree {
	t.Helper()

	world := models.RectFromSize(10000, 10000)

	var assets []models.AssetRef
	for i := 0; i < 120; i++ {
		x := float64((i*277 + 19) % 10000)
		y := float64((i*149 + 23) % 10000)
		assets = append(assets, models.PointAsset(fmt.Sprintf("asset_%03d", i), models.Vec2{X: x, Y: y}, models.CategoryProp))
	}
	// one deliberate macro straddler ends up on the root
	assets = append(assets, models.AssetRef{
		ID:        "bridge",
		Footprint: models.NewRect(2400, 4000, 2600, 4100),
		Category:  models.CategoryStructure,
	})

	idx, err := spatial.Build(world, assets, spatial.DefaultOptions())
	require.NoError(t, err)

	region := models.NewRect(5100, 5100, 5200, 5200)
	tree, err := graph.Build(idx, graph.Config{
		MacroCellSize: 2500,
		MesoCellSize:  1250,
		PlanRefs: []graph.PlanRef{
			{ID: "material_blueprint_tundra"},
			{ID: "layer_plan_ridge", Region: &region},
		},
	})
	require.NoError(t, err)
	return tree
}

func TestRoundTrip(t *testing.T) {
	tree := buildTree(t)

	data, err := Encode(tree)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	require.Equal(t, tree.World(), decoded.World())
	require.Equal(t, tree.Len(), decoded.Len())
	require.Equal(t, tree.CountByTier(), decoded.CountByTier())

	for _, n := range tree.Nodes() {
		d, ok := decoded.NodeByID(n.ID)
		require.True(t, ok, "node %s lost in round trip", n.ID)
		require.Equal(t, n.Tier, d.Tier)
		require.Equal(t, n.Bounds, d.Bounds)
		require.Equal(t, n.AssetIDs, d.AssetIDs)
		require.Equal(t, n.PlanRefIDs, d.PlanRefIDs)
	}

	require.NoError(t, decoded.Validate())
}

func TestEncodeRefusesInconsistentTree(t *testing.T) {
	world := models.RectFromSize(1000, 1000)

	// bypass the builder to forge a tree with a duplicated asset
	nodes := []graph.Node{
		{ID: "world_root", Tier: graph.TierMacro, Bounds: world, Parent: graph.NilNode, AssetIDs: []string{"rock"}},
	}
	tree, err := graph.NewTree(world, nodes)
	require.NoError(t, err)

	data, err := Encode(tree)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	doc.Nodes = append(doc.Nodes, NodeRecord{
		ID:       "forged",
		Tier:     string(graph.TierMicro),
		Bounds:   models.NewRect(0, 0, 100, 100),
		AssetIDs: []string{"rock"},
	})
	forged, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = Decode(forged)
	require.Error(t, err)
}

func TestDocumentFields(t *testing.T) {
	tree := buildTree(t)

	data, err := Encode(tree)
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.NotEmpty(t, doc.BuildID)
	require.False(t, doc.GeneratedAt.IsZero())
	require.Len(t, doc.Nodes, tree.Len())

	root := doc.Nodes[0]
	require.Equal(t, "world_root", root.ID)
	require.Empty(t, root.ParentID)
	require.Len(t, root.ChildIDs, 16)
	require.Contains(t, root.AssetIDs, "bridge")
	require.Contains(t, root.PlanRefIDs, "material_blueprint_tundra")
}

func TestWriteAndReadFile(t *testing.T) {
	tree := buildTree(t)
	path := filepath.Join(t.TempDir(), "pcg_graph.json")

	require.NoError(t, WriteFile(path, tree))

	decoded, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, tree.Len(), decoded.Len())
}
