package models

// LODLevel is a coarseness level for streaming queries. Level 0 is the
// coarsest view; higher levels reveal finer detail categories.
type LODLevel int

// Category classifies a placed asset. The set is closed: anything the asset
// pipeline reports outside of it is treated as finest detail so that coarse
// queries never pull in unknown content.
type Category string

const (
	CategoryLandscape Category = "landscape"
	CategoryStructure Category = "structure"
	CategoryBuilding  Category = "building"
	CategoryFoliage   Category = "foliage"
	CategoryProp      Category = "prop"
	CategoryDetail    Category = "detail"
)

// detailRank orders categories from coarse to fine.
func (c Category) detailRank() int {
	switch c {
	case CategoryLandscape:
		return 0
	case CategoryStructure, CategoryBuilding:
		return 1
	case CategoryFoliage, CategoryProp:
		return 2
	case CategoryDetail:
		return 3
	default:
		return 3
	}
}

// VisibleAt reports whether assets of this category are relevant at the given
// LOD level.
func (c Category) VisibleAt(lod LODLevel) bool {
	return c.detailRank() <= int(lod)
}

// AssetRef is a read-only reference to an asset placed by the external asset
// pipeline. The engine never mutates it and does not own its lifecycle.
type AssetRef struct {
	ID        string   `json:"id"`
	Footprint Rect     `json:"footprint"`
	Category  Category `json:"category"`
}

// PointAsset returns a reference with a zero-area footprint.
func PointAsset(id string, pos Vec2, category Category) AssetRef {
	return AssetRef{
		ID:        id,
		Footprint: Rect{Min: pos, Max: pos},
		Category:  category,
	}
}
