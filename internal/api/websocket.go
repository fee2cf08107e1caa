package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"murmer/internal/ws"
)

type WebSocketHandler struct {
	app        *ws.App
	ipResolver *ClientIPResolver
	upgrader   websocket.Upgrader
}

func NewWebSocketHandler(app *ws.App, ipResolver *ClientIPResolver) *WebSocketHandler {
	return &WebSocketHandler{
		app:        app,
		ipResolver: ipResolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	ip := h.ipResolver.Resolve(r)
	go ws.Serve(h.app, conn, ip)
}
