package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/featureflag"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/spatial"
	"github.com/jeralabs/jera/stream"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// HandleStream mounts the sector streaming handler as a WebSocket endpoint.
func HandleStream(ctx context.Context, h *stream.Handler) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		h.HandleConn(ctx, conn)
	})
}

// AssetQueryResponse is the payload returned by the asset query endpoint.
type AssetQueryResponse struct {
	Region models.Rect       `json:"region"`
	Count  int               `json:"count"`
	Assets []models.AssetRef `json:"assets"`
}

// HandleAssetQuery serves region queries against the published spatial index.
// Query parameters: minx, miny, maxx, maxy and an optional lod.
func HandleAssetQuery(store *spatial.Store, flags featureflag.FeatureFlag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var disabled bool
		flags.IfSet(featureflag.FlagDisableAssetQuery, func() {
			disabled = true
		})
		if disabled {
			http.Error(w, "asset query is disabled", http.StatusNotFound)
			return
		}

		region, lod, err := parseAssetQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		idx, ok := store.Current()
		if !ok {
			http.Error(w, "no index published", http.StatusServiceUnavailable)
			return
		}

		var assets []models.AssetRef
		if lod != nil {
			assets = idx.QueryRegionWithLOD(region, *lod)
		} else {
			assets = idx.QueryRegion(region)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AssetQueryResponse{
			Region: region,
			Count:  len(assets),
			Assets: assets,
		})
	}
}

func parseAssetQuery(r *http.Request) (models.Rect, *models.LODLevel, error) {
	q := r.URL.Query()

	coord := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			return 0, errors.New("invalid query coordinate").
				WithTag("param", name).
				Wrap(err)
		}
		return v, nil
	}

	minX, err := coord("minx")
	if err != nil {
		return models.Rect{}, nil, err
	}
	minY, err := coord("miny")
	if err != nil {
		return models.Rect{}, nil, err
	}
	maxX, err := coord("maxx")
	if err != nil {
		return models.Rect{}, nil, err
	}
	maxY, err := coord("maxy")
	if err != nil {
		return models.Rect{}, nil, err
	}

	region := models.NewRect(minX, minY, maxX, maxY)
	if !region.IsPositive() {
		return models.Rect{}, nil, errors.New("query region must have positive area")
	}

	if q.Get("lod") == "" {
		return region, nil, nil
	}
	v, err := strconv.Atoi(q.Get("lod"))
	if err != nil || v < 0 {
		return models.Rect{}, nil, errors.New("invalid lod").
			WithTag("lod", q.Get("lod"))
	}
	lod := models.LODLevel(v)
	return region, &lod, nil
}
