package models

// WarningKind tags a non-fatal build diagnostic.
type WarningKind string

const (
	// WarnSkippedAsset marks an asset whose footprint falls outside the world
	// bounds, or a duplicate id. The asset is excluded from the build.
	WarnSkippedAsset WarningKind = "skipped_asset"

	// WarnDenseRegion marks a quadtree leaf holding more assets than the
	// configured capacity: the leaf is at max depth, or its assets share one
	// footprint that no split can separate.
	WarnDenseRegion WarningKind = "dense_region"

	// WarnStraddleReassignment marks content that did not fit any cell of its
	// preferred tier and was reassigned to a coarser node.
	WarnStraddleReassignment WarningKind = "straddle_reassignment"
)

// Warning is a non-fatal diagnostic attached to a build result. Warnings
// never abort a build; pathological inputs are reported, not fatal.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	AssetID string      `json:"asset_id,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// Diagnostics accumulates warnings during a build.
type Diagnostics []Warning

func (d *Diagnostics) Add(kind WarningKind, assetID, detail string) {
	*d = append(*d, Warning{Kind: kind, AssetID: assetID, Detail: detail})
}

// ByKind returns the warnings of the given kind, in emission order.
func (d Diagnostics) ByKind(kind WarningKind) []Warning {
	var out []Warning
	for _, w := range d {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}
