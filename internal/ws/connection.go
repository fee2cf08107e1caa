package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"murmer/internal/constants"
)

var backgroundCtx = context.Background()

const (
	writeWait     = 10 * time.Second
	pongWait      = 15 * time.Second
	pingPeriod    = 10 * time.Second
	maxMessageSize = 1 << 20
)

// connection is one WebSocket session: its dispatch state, its current
// text-channel subscription, and its voice membership, if any.
type connection struct {
	app       *App
	conn      *websocket.Conn
	ip        string
	sessionID string

	authenticated bool
	user          string
	channel       string
	voiceChannel  string

	channelSubID int
	channelSub   chan []byte
	globalSubID  int
	globalSub    chan []byte
}

// Serve runs one connection's entire lifecycle: subscribe to general and the
// global bus, spawn the read goroutine, then run the three-way dispatch
// select until the socket closes, finally releasing subscriptions and
// broadcasting disconnect state.
func Serve(app *App, conn *websocket.Conn, ip string) {
	c := &connection{
		app:           app,
		conn:          conn,
		ip:            ip,
		sessionID:     uuid.NewString(),
		authenticated: !app.cfg.RequiresPassword(),
		channel:       constants.GeneralChannel,
	}

	c.globalSubID, c.globalSub = app.buses.global.subscribe()
	c.channelSubID, c.channelSub = app.buses.channelBus(c.channel).subscribe()

	defer conn.Close()

	slog.Info("connection opened", "session", c.sessionID, "ip", c.ip)
	defer func() {
		slog.Info("connection closed", "session", c.sessionID, "user", c.user)
	}()
	defer c.cleanup()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	inbound := make(chan []byte, 8)
	done := make(chan struct{})
	defer close(done)
	go c.readLoop(inbound, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-inbound:
			if !ok {
				return
			}
			if !c.dispatch(frame) {
				return
			}

		case msg, ok := <-c.channelSub:
			if !ok {
				return
			}
			if !c.writeText(msg) {
				return
			}

		case msg, ok := <-c.globalSub:
			if !ok {
				return
			}
			if !c.writeText(msg) {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// readLoop is the sole reader goroutine; gorilla/websocket permits exactly
// one reader and one writer per connection, so all writes happen on the
// dispatch goroutine instead.
func (c *connection) readLoop(inbound chan<- []byte, done <-chan struct{}) {
	defer close(inbound)
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			return
		}
		select {
		case inbound <- data:
		case <-done:
			return
		}
	}
}

func (c *connection) writeText(msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg) == nil
}

// dispatch routes one inbound frame by type, returning false when the
// connection must close.
func (c *connection) dispatch(frame []byte) bool {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		slog.Warn("unparseable frame", "ip", c.ip)
		return true
	}

	if !c.authenticated && env.Type != typePresence {
		c.writeText(errorFrame(constants.ErrUnauthenticated))
		return false
	}

	switch env.Type {
	case typePresence:
		return c.handlePresence(frame)
	case typeJoin:
		c.handleJoin(frame)
	case typeLoadHistory:
		c.handleLoadHistory(frame)
	case typeSearchHistory:
		c.handleSearchHistory(frame)
	case typeCreateChannel:
		c.handleCreateChannel(frame)
	case typeDeleteChannel:
		c.handleDeleteChannel(frame)
	case typeCreateVoiceChannel:
		c.handleCreateVoiceChannel(frame)
	case typeUpdateVoiceChannel:
		c.handleUpdateVoiceChannel(frame)
	case typeDeleteVoiceChannel:
		c.handleDeleteVoiceChannel(frame)
	case typeChat:
		c.handleChat(frame)
	case typeDeleteMessage:
		c.handleDeleteMessage(frame)
	case typeReact:
		c.handleReact(frame)
	case typeStatusUpdate:
		c.handleStatusUpdate(frame)
	case typePing:
		c.handlePing(frame)
	case typeVoiceJoin:
		c.handleVoiceJoin(frame)
	case typeVoiceLeave:
		c.handleVoiceLeave(frame)
	case typeVoiceOffer, typeVoiceAnswer, typeVoiceCandidate:
		c.app.buses.publishGlobal(frame)
	default:
		slog.Warn("unknown message type", "type", env.Type)
	}
	return true
}

// cleanup runs unconditionally on exit: release bus subscriptions, empty
// voice membership, mark presence offline, and broadcast the changes.
// Role and key mappings are preserved so offline users still display.
func (c *connection) cleanup() {
	c.app.buses.global.unsubscribe(c.globalSubID)
	if c.channelSub != nil {
		c.app.buses.channelBus(c.channel).unsubscribe(c.channelSubID)
	}

	if c.user == "" {
		return
	}

	c.app.state.MarkOffline(c.user)
	c.broadcastOnlineUsers()

	if room, members := c.app.voice.removeFromAll(c.user); room != "" {
		c.app.buses.publishGlobal(mustMarshal(map[string]any{
			"type":    "voice-users",
			"channel": room,
			"users":   members,
		}))
	}

	c.app.state.SetStatus(c.user, "offline")
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type":   "status-update",
		"user":   c.user,
		"status": "offline",
	}))
}

func (c *connection) broadcastOnlineUsers() {
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type":  "online-users",
		"users": c.app.state.OnlineUsers(),
		"all":   c.app.state.KnownUsers(),
	}))
}
