package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/literoom/engine/internal/engineerr"
	"github.com/literoom/engine/internal/executor"
	"github.com/literoom/engine/internal/metrics"
	"github.com/literoom/engine/internal/worker"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hub upgrades /ws connections and pipes each client's render requests
// through the shared worker, replying with correlated RenderResponses —
// the same register/unregister/per-client-send-channel shape as the
// retrieved pack's detection-event broadcaster, adapted from a
// one-way broadcast to a duplex request/response protocol.
type hub struct {
	log    *zap.Logger
	w      *worker.Worker
	source *engineSource
	deb    *worker.Debouncer
}

func newHub(log *zap.Logger, w *worker.Worker, source *engineSource) *hub {
	return &hub{log: log, w: w, source: source, deb: worker.NewDebouncer()}
}

func (h *hub) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()
	defer conn.Close()

	send := make(chan worker.RenderResponse, 16)
	done := make(chan struct{})
	go h.writePump(conn, send, done)
	h.readPump(conn, send)
	close(send)
	<-done
}

func (h *hub) readPump(conn *websocket.Conn, send chan<- worker.RenderResponse) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg struct {
			ID          string               `json:"id"`
			AssetID     string               `json:"assetId"`
			State       json.RawMessage      `json:"state"`
			Quality     executor.Quality     `json:"quality"`
			MaxLongEdge int                  `json:"maxLongEdge"`
			Draft       bool                 `json:"draft"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			send <- worker.RenderResponse{Err: engineerr.Wrap(engineerr.InvalidFormat, "malformed ws render request", err)}
			continue
		}

		src, err := h.source.LoadFull(msg.AssetID)
		if err != nil {
			send <- worker.RenderResponse{ID: msg.ID, Err: err}
			continue
		}

		var state executor.Request
		state.Source = src
		state.Quality = msg.Quality
		state.MaxLongEdge = msg.MaxLongEdge
		if state.Quality == "" {
			state.Quality = executor.QualityFull
		}

		req := worker.RenderRequest{ID: msg.ID, AssetID: msg.AssetID, Source: &state, Quality: state.Quality, MaxLongEdge: state.MaxLongEdge}

		if msg.Draft {
			h.deb.Schedule(msg.AssetID, req, func(ctx context.Context, r worker.RenderRequest) {
				resp, err := h.w.Submit(ctx, r)
				if err != nil {
					resp = worker.RenderResponse{ID: r.ID, Err: err}
				}
				select {
				case send <- resp:
				default:
				}
			})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		resp, err := h.w.Submit(ctx, req)
		cancel()
		if err != nil {
			resp = worker.RenderResponse{ID: req.ID, Err: err}
		}
		send <- resp
	}
}

func (h *hub) writePump(conn *websocket.Conn, send <-chan worker.RenderResponse, done chan<- struct{}) {
	defer close(done)
	for resp := range send {
		payload := map[string]any{"id": resp.ID, "backend": resp.Backend}
		if resp.Err != nil {
			payload["error"] = resp.Err.Error()
		}
		data, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
