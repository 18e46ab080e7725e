package adapterws

import (
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"crmgen/adapter"
	"crmgen/internal/wire"
	"crmgen/logging"
	transportlog "crmgen/logging/transport"
)

// HandlerConfig carries the collaborators for a Handler.
type HandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
}

// Handler serves the adapter wire protocol over websocket, dispatching each
// frame to the wrapped Service.
type Handler struct {
	svc      adapter.Service
	logger   *log.Logger
	pub      logging.Publisher
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler around the given service.
func NewHandler(svc adapter.Service, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		svc:      svc,
		logger:   logger,
		pub:      pub,
		upgrader: upgrader,
	}
}

// Handle upgrades the request and serves frames until the peer disconnects.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	remote := logging.EntityRef{ID: conn.RemoteAddr().String(), Kind: logging.EntityKindAdapter}
	transportlog.Connected(r.Context(), h.pub, remote, nil)
	defer transportlog.Disconnected(r.Context(), h.pub, remote, "", nil)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		req, err := wire.DecodeRequest(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", remote.ID, err)
			transportlog.Malformed(r.Context(), h.pub, remote, err.Error(), nil)
			continue
		}

		resp := h.dispatch(r, req)
		data, err := wire.EncodeResponse(resp)
		if err != nil {
			h.logger.Printf("failed to marshal response for %s: %v", remote.ID, err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (h *Handler) dispatch(r *nethttp.Request, req wire.RequestV1) wire.ResponseV1 {
	resp := wire.ResponseV1{Ver: wire.Version, Seq: req.Seq, Op: req.Op}
	switch req.Op {
	case wire.OpCreateEntity:
		if req.Create == nil {
			return wire.ErrorResponse(req.Seq, req.Op, errMissingRequestPayload)
		}
		out, err := h.svc.CreateEntity(r.Context(), *req.Create)
		if err != nil {
			return wire.ErrorResponse(req.Seq, req.Op, err)
		}
		resp.Create = &out
	case wire.OpUpdateEntity:
		if req.Update == nil {
			return wire.ErrorResponse(req.Seq, req.Op, errMissingRequestPayload)
		}
		out, err := h.svc.UpdateEntity(r.Context(), *req.Update)
		if err != nil {
			return wire.ErrorResponse(req.Seq, req.Op, err)
		}
		resp.Update = &out
	case wire.OpSearchEntities:
		if req.Search == nil {
			return wire.ErrorResponse(req.Seq, req.Op, errMissingRequestPayload)
		}
		out, err := h.svc.SearchEntities(r.Context(), *req.Search)
		if err != nil {
			return wire.ErrorResponse(req.Seq, req.Op, err)
		}
		resp.Search = &out
	}
	return resp
}
