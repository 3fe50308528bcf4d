package featureflag

type Flag string

const (
	FlagDisableSectorContents     Flag = "DISABLE_SECTOR_CONTENTS"
	FlagDisableParallelGraphBuild Flag = "DISABLE_PARALLEL_GRAPH_BUILD"
	FlagDisableAssetQuery         Flag = "DISABLE_ASSET_QUERY"
)
