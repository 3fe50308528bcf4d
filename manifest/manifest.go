// Package manifest loads the build manifest and the asset list produced by
// the external asset pipeline. All configuration is validated at entry; a
// manifest that can never tile the world is rejected before any build work.
package manifest

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/graph"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/sector"
	"github.com/jeralabs/jera/spatial"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

// Manifest describes one generation cycle.
type Manifest struct {
	World struct {
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"world"`

	SectorSize float64 `yaml:"sector_size"`
	Metric     string  `yaml:"metric"`

	Index struct {
		MaxAssetsPerNode int `yaml:"max_assets_per_node"`
		MaxDepth         int `yaml:"max_depth"`
	} `yaml:"index"`

	Graph struct {
		MacroCellSize float64 `yaml:"macro_cell_size"`
		MesoCellSize  float64 `yaml:"meso_cell_size"`
	} `yaml:"graph"`

	// AssetFile points at the JSON asset list written by the asset
	// classification pipeline.
	AssetFile string `yaml:"asset_file"`

	// PlanRefs are opaque ids from the material/layer planners, optionally
	// scoped to a region.
	PlanRefs []graph.PlanRef `yaml:"plan_refs"`
}

// Default returns a manifest with the default world and grid sizes.
func Default() Manifest {
	var m Manifest
	m.World.Width = 2048
	m.World.Height = 2048
	m.SectorSize = 512
	m.Metric = string(sector.MetricChebyshev)
	m.Index.MaxAssetsPerNode = spatial.DefaultMaxAssetsPerNode
	m.Index.MaxDepth = spatial.DefaultMaxDepth
	m.Graph.MacroCellSize = 1024
	m.Graph.MesoCellSize = 256
	return m
}

// Load reads, parses and validates a manifest file. Unset fields take the
// defaults from Default.
func Load(path string) (Manifest, error) {
	m := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return m, errors.New("reading manifest failed").
			WithTag("path", path).
			Wrap(err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, errors.New("parsing manifest failed").
			WithType(models.ErrTypeConfig).
			WithTag("path", path).
			Wrap(err)
	}
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

// Validate applies the configuration rules shared with the engine packages
// so a bad manifest fails before any build starts.
func (m Manifest) Validate() error {
	if m.World.Width <= 0 || m.World.Height <= 0 {
		return errors.New("world size must be positive").
			WithType(models.ErrTypeConfig).
			WithTag("width", m.World.Width).
			WithTag("height", m.World.Height)
	}
	if m.SectorSize <= 0 || m.SectorSize > m.World.Width || m.SectorSize > m.World.Height {
		return errors.New("sector size must be positive and within the world extent").
			WithType(models.ErrTypeConfig).
			WithTag("sector_size", m.SectorSize)
	}
	if m.Index.MaxAssetsPerNode < 1 {
		return errors.New("max assets per node must be at least 1").
			WithType(models.ErrTypeConfig).
			WithTag("max_assets_per_node", m.Index.MaxAssetsPerNode)
	}
	if m.Index.MaxDepth < 0 {
		return errors.New("max depth must not be negative").
			WithType(models.ErrTypeConfig).
			WithTag("max_depth", m.Index.MaxDepth)
	}
	if m.Graph.MesoCellSize <= 0 || m.Graph.MacroCellSize < m.Graph.MesoCellSize {
		return errors.New("macro cells must be at least as coarse as meso cells").
			WithType(models.ErrTypeConfig).
			WithTag("macro_cell_size", m.Graph.MacroCellSize).
			WithTag("meso_cell_size", m.Graph.MesoCellSize)
	}
	return nil
}

// WorldBounds returns the generation region, anchored at the origin.
func (m Manifest) WorldBounds() models.Rect {
	return models.RectFromSize(m.World.Width, m.World.Height)
}

// IndexOptions returns the spatial index options from the manifest.
func (m Manifest) IndexOptions() spatial.Options {
	return spatial.Options{
		MaxAssetsPerNode: m.Index.MaxAssetsPerNode,
		MaxDepth:         m.Index.MaxDepth,
	}
}

// GraphConfig returns the graph builder configuration from the manifest.
func (m Manifest) GraphConfig(parallel bool) graph.Config {
	return graph.Config{
		MacroCellSize: m.Graph.MacroCellSize,
		MesoCellSize:  m.Graph.MesoCellSize,
		PlanRefs:      m.PlanRefs,
		Parallel:      parallel,
	}
}

// assetRecord is the collaborator's output contract: a placed asset with an
// optional max corner. Point placements omit max.
type assetRecord struct {
	ID       string       `json:"id"`
	Min      models.Vec2  `json:"min"`
	Max      *models.Vec2 `json:"max,omitempty"`
	Category string       `json:"category"`
}

// LoadAssets reads the JSON asset list referenced by the manifest.
func LoadAssets(path string) ([]models.AssetRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading asset list failed").
			WithTag("path", path).
			Wrap(err)
	}

	var records []assetRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.New("parsing asset list failed").
			WithTag("path", path).
			Wrap(err)
	}

	assets := make([]models.AssetRef, 0, len(records))
	for _, r := range records {
		max := r.Min
		if r.Max != nil {
			max = *r.Max
		}
		assets = append(assets, models.AssetRef{
			ID:        r.ID,
			Footprint: models.Rect{Min: r.Min, Max: max},
			Category:  models.Category(r.Category),
		})
	}
	return assets, nil
}
