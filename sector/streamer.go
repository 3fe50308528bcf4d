package sector

import (
	"math"
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/spatial"
)

// Metric selects the distance function used to decide whether a sector is
// within streaming range of a viewpoint.
type Metric string

const (
	MetricChebyshev Metric = "chebyshev"
	MetricEuclidean Metric = "euclidean"
)

// Set is a set of sectors.
type Set map[models.Sector]struct{}

func (s Set) Add(sec models.Sector) {
	s[sec] = struct{}{}
}

func (s Set) Contains(sec models.Sector) bool {
	_, ok := s[sec]
	return ok
}

// Sorted returns the sectors in row-major order.
func (s Set) Sorted() []models.Sector {
	out := make([]models.Sector, 0, len(s))
	for sec := range s {
		out = append(out, sec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Diff returns the sectors to load and unload when moving from the previous
// active set to the current one. Pure set difference, no side effects.
func Diff(previous, current Set) (toLoad, toUnload []models.Sector) {
	for sec := range current {
		if !previous.Contains(sec) {
			toLoad = append(toLoad, sec)
		}
	}
	for sec := range previous {
		if !current.Contains(sec) {
			toUnload = append(toUnload, sec)
		}
	}
	sort.Slice(toLoad, func(i, j int) bool { return toLoad[i].Less(toLoad[j]) })
	sort.Slice(toUnload, func(i, j int) bool { return toUnload[i].Less(toUnload[j]) })
	return toLoad, toUnload
}

// Streamer derives a uniform sector grid over the world bounds and computes
// which sectors a viewpoint keeps loaded. It holds no mutable state; all
// methods are pure and deterministic.
type Streamer struct {
	world  models.Rect
	size   float64
	rows   int
	cols   int
	metric Metric
}

// New validates the grid configuration. The sector size must be positive and
// no larger than either world extent, otherwise the grid can never tile the
// world.
func New(world models.Rect, sectorSize float64, metric Metric) (*Streamer, error) {
	if !world.IsPositive() {
		return nil, errors.New("world bounds must span a positive area").
			WithType(models.ErrTypeConfig).
			WithTag("width", world.Width()).
			WithTag("height", world.Height())
	}
	if sectorSize <= 0 {
		return nil, errors.New("sector size must be positive").
			WithType(models.ErrTypeConfig).
			WithTag("sector_size", sectorSize)
	}
	if sectorSize > world.Width() || sectorSize > world.Height() {
		return nil, errors.New("sector size exceeds world extent").
			WithType(models.ErrTypeConfig).
			WithTag("sector_size", sectorSize).
			WithTag("width", world.Width()).
			WithTag("height", world.Height())
	}

	switch metric {
	case "":
		metric = MetricChebyshev
	case MetricChebyshev, MetricEuclidean:
	default:
		return nil, errors.New("unknown sector metric").
			WithType(models.ErrTypeConfig).
			WithTag("metric", metric)
	}

	return &Streamer{
		world:  world,
		size:   sectorSize,
		rows:   int(math.Ceil(world.Height() / sectorSize)),
		cols:   int(math.Ceil(world.Width() / sectorSize)),
		metric: metric,
	}, nil
}

func (st *Streamer) Rows() int { return st.rows }
func (st *Streamer) Cols() int { return st.cols }

// SectorBounds returns the half-open region of a sector. Cells on the world's
// max edges are truncated so the grid tiles the world without overlap.
func (st *Streamer) SectorBounds(s models.Sector) models.Rect {
	minX := st.world.Min.X + float64(s.Col)*st.size
	minY := st.world.Min.Y + float64(s.Row)*st.size
	return models.NewRect(
		minX,
		minY,
		math.Min(minX+st.size, st.world.Max.X),
		math.Min(minY+st.size, st.world.Max.Y),
	)
}

// SectorAt returns the sector containing the given point, clamped to the
// grid so a viewpoint slightly outside the world still maps to an edge cell.
func (st *Streamer) SectorAt(p models.Vec2) models.Sector {
	return models.Sector{
		Row: clamp(int(math.Floor((p.Y-st.world.Min.Y)/st.size)), 0, st.rows-1),
		Col: clamp(int(math.Floor((p.X-st.world.Min.X)/st.size)), 0, st.cols-1),
	}
}

// ActiveSectors returns every sector within radius of the viewpoint under
// the configured metric.
func (st *Streamer) ActiveSectors(viewpoint models.Vec2, radius float64) Set {
	active := make(Set)
	st.collect(active, viewpoint, radius)
	return active
}

// ActiveSectorsAlongPath returns the union of the active sets of every
// point on the path. The path is represented by its sampled waypoints.
func (st *Streamer) ActiveSectorsAlongPath(points []models.Vec2, radius float64) Set {
	active := make(Set)
	for _, p := range points {
		st.collect(active, p, radius)
	}
	return active
}

// Contents returns the assets placed in the sector, delegating to the
// spatial index.
func (st *Streamer) Contents(idx *spatial.Index, s models.Sector) []models.AssetRef {
	return idx.QueryRegion(st.SectorBounds(s))
}

func (st *Streamer) collect(active Set, viewpoint models.Vec2, radius float64) {
	if radius < 0 {
		return
	}

	lo := st.SectorAt(models.Vec2{X: viewpoint.X - radius, Y: viewpoint.Y - radius})
	hi := st.SectorAt(models.Vec2{X: viewpoint.X + radius, Y: viewpoint.Y + radius})

	for row := lo.Row; row <= hi.Row; row++ {
		for col := lo.Col; col <= hi.Col; col++ {
			sec := models.Sector{Row: row, Col: col}
			if st.distance(viewpoint, st.SectorBounds(sec)) <= radius {
				active.Add(sec)
			}
		}
	}
}

func (st *Streamer) distance(p models.Vec2, r models.Rect) float64 {
	if st.metric == MetricEuclidean {
		return r.DistanceEuclidean(p)
	}
	return r.DistanceChebyshev(p)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
