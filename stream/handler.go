// Package stream serves sector streaming over WebSocket. A client reports its
// viewpoint or planned path and receives the sectors to load and unload since
// its previous report, optionally with the assets each loaded sector contains.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/jeralabs/jera/featureflag"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/sector"
	"github.com/jeralabs/jera/spatial"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize   = 64
	requestMaxSize = 10240

	MsgTypeViewpoint = "viewpoint"
	MsgTypePath      = "path"
	MsgTypePing      = "ping"

	MsgTypeSectors = "sectors"
	MsgTypePong    = "pong"
	MsgTypeError   = "error"

	ErrCodeBadRequest  = "bad_request"
	ErrCodeNoWorld     = "no_world"
	ErrCodeTooLarge    = "too_large"
	ErrCodeUnknownType = "unknown_type"
)

// Request is a client message.
type Request struct {
	Type      string           `json:"type"`
	RequestID uint32           `json:"request_id"`
	Viewpoint models.Vec2      `json:"viewpoint"`
	Waypoints []models.Vec2    `json:"waypoints,omitempty"`
	Radius    float64          `json:"radius"`
	LOD       *models.LODLevel `json:"lod,omitempty"`
}

// Response is a server message.
type Response struct {
	Type      string          `json:"type"`
	RequestID uint32          `json:"request_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Load      []SectorView    `json:"load,omitempty"`
	Unload    []models.Sector `json:"unload,omitempty"`
	Code      string          `json:"code,omitempty"`
}

// SectorView is a sector entering the client's active set.
type SectorView struct {
	Sector models.Sector `json:"sector"`
	Bounds models.Rect   `json:"bounds"`
	Assets []AssetView   `json:"assets,omitempty"`
}

// AssetView is the client-facing projection of an indexed asset.
type AssetView struct {
	ID        string          `json:"id"`
	Footprint models.Rect     `json:"footprint"`
	Category  models.Category `json:"category"`
}

// Handler streams sector load and unload sets to connected clients.
type Handler struct {
	// The streamer that resolves viewpoints into active sector sets.
	Streamer *sector.Streamer

	// The store holding the published spatial index. Sector contents are
	// omitted while no index is published.
	Store *spatial.Store

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	FeatureFlags featureflag.FeatureFlag

	// Generates per-connection numbers, reused after disconnect.
	ConnIDs *models.SequentialIDGenerator
}

// HandleConn serves one client connection until the context is canceled, the
// client idles out, or the connection fails. It blocks.
func (h *Handler) HandleConn(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	connID := h.ConnIDs.New()
	defer h.ConnIDs.Reuse(connID)

	sess := newSession()

	instrumentConnect()
	defer instrumentDisconnect()

	logs.WithTag("conn_id", connID).
		WithTag("session_id", sess.ID).
		Debug("client connected")

	sendChan := make(chan []byte, sendChanSize)
	recvChan := make(chan []byte, sendChanSize)
	disconnectChan := make(chan error, 8)
	disconnect := func(err error) {
		select {
		case disconnectChan <- err:
		default:
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-sendChan:
				if err := websocket.Message.Send(conn, string(data)); err != nil {
					instrumentSendError()
					disconnect(errors.New("sending message failed").Wrap(err))
					return
				}
				instrumentSent(len(data))
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			var data []byte
			if err := websocket.Message.Receive(conn, &data); err != nil {
				instrumentReceiveError()
				disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}
			select {
			case recvChan <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	send := func(res Response) {
		data, err := json.Marshal(res)
		if err != nil {
			logs.WithTag("msg_type", res.Type).Error(errors.New("encoding response failed").Wrap(err))
			return
		}
		select {
		case sendChan <- data:
		case <-ctx.Done():
		}
	}

	idleTimer := time.NewTimer(h.ClientIdleTimeout)
	defer idleTimer.Stop()

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			disconnect(ctx.Err())

		case <-idleTimer.C:
			disconnect(errors.New("idle connection").
				WithTag("duration", h.ClientIdleTimeout))

		case data := <-recvChan:
			idleTimer.Stop()
			idleTimer.Reset(h.ClientIdleTimeout)

			h.handleMessage(sess, data, send)

		case err := <-disconnectChan:
			if err != nil && ctx.Err() == nil {
				logs.WithTag("conn_id", connID).
					WithTag("session_id", sess.ID).
					Debug(err)
			}
			cancel()
		}
	}

	// closing the connection unblocks a receiver parked in Receive so both
	// goroutines can unwind
	conn.Close()
	wg.Wait()
}

func (h *Handler) handleMessage(sess *session, data []byte, send func(Response)) {
	if len(data) > requestMaxSize {
		send(Response{Type: MsgTypeError, Code: ErrCodeTooLarge})
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		send(Response{Type: MsgTypeError, Code: ErrCodeBadRequest})
		return
	}
	instrumentReceived(req.Type, len(data))

	switch req.Type {
	case MsgTypePing:
		send(Response{
			Type:      MsgTypePong,
			RequestID: req.RequestID,
			SessionID: sess.ID,
		})

	case MsgTypeViewpoint, MsgTypePath:
		res, err := sess.Update(h.Streamer, h.Store, h.FeatureFlags, req)
		if err != nil {
			send(Response{
				Type:      MsgTypeError,
				RequestID: req.RequestID,
				Code:      errors.Type(err),
			})
			return
		}
		send(res)

	default:
		send(Response{
			Type:      MsgTypeError,
			RequestID: req.RequestID,
			Code:      ErrCodeUnknownType,
		})
	}
}

// session tracks one client's active sector set between reports.
type session struct {
	ID     string
	active sector.Set
}

func newSession() *session {
	return &session{
		ID:     uuid.NewString(),
		active: sector.Set{},
	}
}

// Update resolves a viewpoint or path report into the load and unload sets
// relative to the previous report, and advances the session's active set.
func (s *session) Update(st *sector.Streamer, store *spatial.Store, flags featureflag.FeatureFlag, req Request) (Response, error) {
	if req.Radius < 0 {
		return Response{}, errors.New("negative streaming radius").
			WithType(ErrCodeBadRequest).
			WithTag("radius", req.Radius)
	}

	var current sector.Set
	switch req.Type {
	case MsgTypeViewpoint:
		current = st.ActiveSectors(req.Viewpoint, req.Radius)
	case MsgTypePath:
		if len(req.Waypoints) == 0 {
			return Response{}, errors.New("path report without waypoints").
				WithType(ErrCodeBadRequest)
		}
		current = st.ActiveSectorsAlongPath(req.Waypoints, req.Radius)
	default:
		return Response{}, errors.New("unknown report type").
			WithType(ErrCodeUnknownType).
			WithTag("msg_type", req.Type)
	}

	toLoad, toUnload := sector.Diff(s.active, current)
	s.active = current

	res := Response{
		Type:      MsgTypeSectors,
		RequestID: req.RequestID,
		SessionID: s.ID,
		Unload:    toUnload,
	}

	idx, published := store.Current()
	for _, sec := range toLoad {
		view := SectorView{
			Sector: sec,
			Bounds: st.SectorBounds(sec),
		}
		if published {
			flags.IfNotSet(featureflag.FlagDisableSectorContents, func() {
				view.Assets = assetViews(sectorAssets(st, idx, sec, req.LOD))
			})
		}
		res.Load = append(res.Load, view)
	}

	instrumentSectorFlow(len(toLoad), len(toUnload))
	return res, nil
}

func sectorAssets(st *sector.Streamer, idx *spatial.Index, sec models.Sector, lod *models.LODLevel) []models.AssetRef {
	if lod == nil {
		return st.Contents(idx, sec)
	}
	return idx.QueryRegionWithLOD(st.SectorBounds(sec), *lod)
}

func assetViews(assets []models.AssetRef) []AssetView {
	if len(assets) == 0 {
		return nil
	}
	views := make([]AssetView, 0, len(assets))
	for _, a := range assets {
		views = append(views, AssetView{
			ID:        a.ID,
			Footprint: a.Footprint,
			Category:  a.Category,
		})
	}
	return views
}
