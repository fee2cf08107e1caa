package ws

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"murmer/internal/constants"
	"murmer/internal/db"
)

// handlePresence runs the authentication pipeline in the exact order the
// dispatch engine requires: password, auth rate limit, timestamp freshness,
// replay check, signature verification, then username validation. Only on
// full success does it mark the session online and send the initial
// snapshot. Returns false when the connection must close.
func (c *connection) handlePresence(frame []byte) bool {
	var req presenceRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		c.writeText(errorFrame(constants.ErrInvalidUsername))
		return true
	}

	if c.app.cfg.RequiresPassword() && req.Password != c.app.cfg.ServerPassword {
		c.writeText(errorFrame(constants.ErrInvalidPassword))
		return false
	}

	if !c.app.auth.allowAttempt(c.ip) {
		c.writeText(errorFrame(constants.ErrAuthRateLimit))
		return false
	}

	if _, ok := checkTimestamp(req.Timestamp); !ok {
		c.writeText(errorFrame(constants.ErrInvalidTimestamp))
		return false
	}

	if c.app.auth.checkReplay(req.PublicKey, req.Timestamp) {
		c.writeText(errorFrame(constants.ErrReplayAttack))
		return false
	}

	if code := verifySignature(req.PublicKey, req.Signature, req.Timestamp); code != "" {
		c.writeText(errorFrame(code))
		return false
	}

	if !validUsername(req.Username) {
		c.writeText(errorFrame(constants.ErrInvalidUsername))
		return false
	}

	c.authenticated = true
	c.user = req.Username

	c.app.state.SetKey(c.user, req.PublicKey)
	c.app.state.MarkOnline(c.user)
	c.app.state.SetStatus(c.user, "online")

	role, err := c.app.roles.Get(backgroundCtx, req.PublicKey)
	var roleInfo RoleInfo
	if err == nil {
		color := ""
		if role.Color != nil {
			color = *role.Color
		} else {
			color = defaultRoleColor(role.Role)
		}
		roleInfo = RoleInfo{Role: role.Role, Color: color}
		c.app.state.SetRole(c.user, roleInfo)
	} else if !errors.Is(err, db.ErrNotFound) {
		c.writeText(errorFrame(constants.ErrCodeInternal))
	}

	c.sendSnapshot(roleInfo)

	c.broadcastOnlineUsers()
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type":   "status-update",
		"user":   c.user,
		"status": "online",
	}))
	if roleInfo.Role != "" {
		c.app.buses.publishGlobal(mustMarshal(map[string]any{
			"type":  "role-update",
			"user":  c.user,
			"role":  roleInfo.Role,
			"color": nullableString(roleInfo.Color),
		}))
	}

	return true
}

// sendSnapshot delivers the full bootstrap state a freshly authenticated
// client needs: roles, statuses, channel lists, voice room membership,
// online/known users, ICE servers, and recent history of general.
func (c *connection) sendSnapshot(self RoleInfo) {
	if roles := c.app.state.AllRoles(); len(roles) > 0 {
		out := make(map[string]map[string]string, len(roles))
		for user, info := range roles {
			out[user] = map[string]string{"role": info.Role, "color": info.Color}
		}
		c.writeText(mustMarshal(map[string]any{"type": "role-snapshot", "roles": out}))
	}

	if statuses := c.app.state.AllStatuses(); len(statuses) > 0 {
		c.writeText(mustMarshal(map[string]any{"type": "status-snapshot", "statuses": statuses}))
	}

	channels, err := c.app.channels.List(backgroundCtx)
	if err == nil {
		c.writeText(mustMarshal(map[string]any{"type": "channel-list", "channels": channels}))
	}

	if voiceChannels, err := c.app.voiceDB.List(backgroundCtx); err == nil {
		entries := make([]map[string]any, 0, len(voiceChannels))
		for _, vc := range voiceChannels {
			entries = append(entries, map[string]any{
				"name": vc.Name, "quality": vc.Quality, "bitrate": vc.Bitrate,
			})
			c.app.voice.ensure(vc.Name, vc.Quality, vc.Bitrate)
		}
		c.writeText(mustMarshal(map[string]any{"type": "voice-channel-list", "channels": entries}))
	}

	c.broadcastOnlineUsersTo()

	for _, room := range c.app.voice.snapshot() {
		c.writeText(mustMarshal(map[string]any{
			"type": "voice-users", "channel": room.Name, "users": room.Members,
		}))
	}

	if servers := buildICEServers(c.app.cfg.TURN, c.user); servers != nil {
		c.writeText(mustMarshal(map[string]any{"type": "ice-servers", "servers": servers}))
	}

	c.sendHistory(constants.GeneralChannel, 0, constants.DefaultHistoryLimit)
}

func (c *connection) broadcastOnlineUsersTo() {
	c.writeText(mustMarshal(map[string]any{
		"type":  "online-users",
		"users": c.app.state.OnlineUsers(),
		"all":   c.app.state.KnownUsers(),
	}))
}

// handleJoin switches a session's current text channel subscription.
func (c *connection) handleJoin(frame []byte) {
	var req joinRequest
	if err := json.Unmarshal(frame, &req); err != nil || !validChannelName(req.Channel) {
		c.writeText(errorFrame(constants.ErrInvalidChannelName))
		return
	}

	c.app.buses.channelBus(c.channel).unsubscribe(c.channelSubID)
	c.channel = req.Channel
	c.channelSubID, c.channelSub = c.app.buses.channelBus(c.channel).subscribe()

	c.sendHistory(c.channel, 0, constants.DefaultHistoryLimit)
}

func (c *connection) handleLoadHistory(frame []byte) {
	var req loadHistoryRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return
	}
	channel := req.Channel
	if channel == "" {
		channel = c.channel
	}
	limit := req.Limit
	if limit <= 0 || limit > constants.MaxHistoryLimit {
		limit = constants.DefaultHistoryLimit
	}
	c.sendHistory(channel, req.Before, limit)
}

// sendHistory queries the most recent rows for channel, layers in live
// reaction summaries, and sends them oldest-first in a single "history"
// frame.
func (c *connection) sendHistory(channel string, before int64, limit int) {
	rows, err := c.app.messages.GetHistory(backgroundCtx, channel, before, limit)
	if err != nil {
		c.writeText(errorFrame(constants.ErrCodeInternal))
		return
	}

	messages := c.decorateRows(rows)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	c.writeText(mustMarshal(map[string]any{"type": "history", "messages": messages}))
}

func (c *connection) handleSearchHistory(frame []byte) {
	var req searchHistoryRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return
	}
	channel := req.Channel
	if channel == "" {
		channel = c.channel
	}
	limit := req.Limit
	if limit <= 0 || limit > constants.MaxSearchResults {
		limit = constants.MaxSearchResults
	}

	rows, err := c.app.messages.Search(backgroundCtx, channel, req.Query, limit)
	if err != nil {
		c.writeText(mustMarshal(map[string]any{
			"type": "search-error", "requestId": req.RequestID, "message": constants.ErrCodeInternal,
		}))
		return
	}

	messages := c.decorateRows(rows)
	c.writeText(mustMarshal(map[string]any{
		"type": "search-results", "requestId": req.RequestID, "channel": channel, "messages": messages,
	}))
}

// decorateRows unmarshals each row's stored content, overlays its id,
// channel, and a freshly computed reaction summary, and returns the result
// in the same order the rows were supplied.
func (c *connection) decorateRows(rows []db.HistoryRow) []map[string]any {
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	summaries, _ := c.app.reactions.SummaryForMessages(backgroundCtx, ids)

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		var value map[string]any
		if err := json.Unmarshal([]byte(row.Content), &value); err != nil {
			continue
		}
		value["id"] = row.ID
		value["channel"] = row.Channel
		if reactions, ok := summaries[row.ID]; ok {
			value["reactions"] = reactions
		} else {
			value["reactions"] = map[string][]string{}
		}
		out = append(out, value)
	}
	return out
}

func (c *connection) canManageChannels() bool {
	return c.app.state.CanManageChannels(c.user, c.app.cfg.RequiresAdminToken())
}

func (c *connection) handleCreateChannel(frame []byte) {
	var req createChannelRequest
	if err := json.Unmarshal(frame, &req); err != nil || !validChannelName(req.Channel) {
		c.writeText(errorFrame(constants.ErrInvalidChannelName))
		return
	}
	if !c.canManageChannels() {
		c.writeText(errorFrame(constants.ErrChannelPermission))
		return
	}
	if err := c.app.channels.Add(backgroundCtx, req.Channel); err != nil {
		c.writeText(errorFrame(constants.ErrChannelCreateFail))
		return
	}
	c.app.buses.publishGlobal(mustMarshal(map[string]any{"type": "channel-add", "channel": req.Channel}))
}

func (c *connection) handleDeleteChannel(frame []byte) {
	var req deleteChannelRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return
	}
	if req.Channel == constants.GeneralChannel {
		c.writeText(errorFrame(constants.ErrCannotDeleteGeneral))
		return
	}
	if !c.canManageChannels() {
		c.writeText(errorFrame(constants.ErrChannelPermission))
		return
	}
	if err := c.app.channels.Remove(backgroundCtx, req.Channel); err != nil {
		c.writeText(errorFrame(constants.ErrChannelDeleteFail))
		return
	}

	// If this session is on the deleted channel it moves to general before
	// the bus is torn down, so unsubscribe happens against the still-live bus.
	// Other sessions on the channel are not moved: they keep their receiver
	// on the removed bus.
	if c.channel == req.Channel {
		c.app.buses.channelBus(req.Channel).unsubscribe(c.channelSubID)
		c.channel = constants.GeneralChannel
		c.channelSubID, c.channelSub = c.app.buses.channelBus(c.channel).subscribe()
	}

	c.app.buses.removeChannelBus(req.Channel)
	c.app.buses.publishGlobal(mustMarshal(map[string]any{"type": "channel-remove", "channel": req.Channel}))
}

func (c *connection) handleCreateVoiceChannel(frame []byte) {
	var req voiceChannelRequest
	if err := json.Unmarshal(frame, &req); err != nil || !validChannelName(req.Channel) {
		c.writeText(errorFrame(constants.ErrInvalidChannelName))
		return
	}
	quality := req.Quality
	if quality == "" {
		quality = constants.DefaultVoiceQuality
	}
	bitrate := req.Bitrate
	if bitrate == 0 {
		bitrate = constants.DefaultVoiceBitrate
	}
	if !validVoiceQuality(quality) {
		c.writeText(errorFrame(constants.ErrInvalidVoiceQuality))
		return
	}
	if !validBitrate(bitrate) {
		c.writeText(errorFrame(constants.ErrInvalidVoiceBitrate))
		return
	}
	if !c.canManageChannels() {
		c.writeText(errorFrame(constants.ErrChannelPermission))
		return
	}
	if err := c.app.voiceDB.Add(backgroundCtx, req.Channel, quality, bitrate); err != nil {
		c.writeText(errorFrame(constants.ErrChannelCreateFail))
		return
	}
	c.app.voice.ensure(req.Channel, quality, bitrate)
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type": "voice-channel-add", "channel": req.Channel, "quality": quality, "bitrate": bitrate,
	}))
}

func (c *connection) handleUpdateVoiceChannel(frame []byte) {
	var req voiceChannelRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return
	}
	if !validVoiceQuality(req.Quality) {
		c.writeText(errorFrame(constants.ErrInvalidVoiceQuality))
		return
	}
	if !validBitrate(req.Bitrate) {
		c.writeText(errorFrame(constants.ErrInvalidVoiceBitrate))
		return
	}
	if !c.canManageChannels() {
		c.writeText(errorFrame(constants.ErrChannelPermission))
		return
	}
	if err := c.app.voiceDB.Update(backgroundCtx, req.Channel, req.Quality, req.Bitrate); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.writeText(errorFrame(constants.ErrUnknownVoiceChannel))
		} else {
			c.writeText(errorFrame(constants.ErrVoiceChannelUpdateFail))
		}
		return
	}
	c.app.voice.update(req.Channel, req.Quality, req.Bitrate)
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type": "voice-channel-update", "channel": req.Channel, "quality": req.Quality, "bitrate": req.Bitrate,
	}))
}

func (c *connection) handleDeleteVoiceChannel(frame []byte) {
	var req voiceChannelRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return
	}
	if !c.canManageChannels() {
		c.writeText(errorFrame(constants.ErrChannelPermission))
		return
	}
	if err := c.app.voiceDB.Remove(backgroundCtx, req.Channel); err != nil {
		c.writeText(errorFrame(constants.ErrUnknownVoiceChannel))
		return
	}
	c.app.voice.remove(req.Channel)
	c.app.buses.publishGlobal(mustMarshal(map[string]any{"type": "voice-channel-remove", "channel": req.Channel}))
}

// handleChat sanitizes and stores a chat message, applying the ephemeral
// expiry clamp when the client requests one, then broadcasts it on the
// channel bus and, if ephemeral, schedules its deletion.
func (c *connection) handleChat(frame []byte) {
	if !c.app.messageLimiter.Allow(c.user, time.Now()) {
		c.writeText(errorFrame(constants.ErrMessageRateLimit))
		return
	}

	var value map[string]any
	if err := json.Unmarshal(frame, &value); err != nil {
		return
	}

	body, _ := value["body"].(string)
	value["body"] = bodyPolicy.Sanitize(body)
	value["user"] = c.user
	value["channel"] = c.channel

	now := time.Now()
	sentAt := now
	if raw, ok := value["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			sentAt = parsed
		}
	}
	value["timestamp"] = sentAt.Format(time.RFC3339)
	value["time"] = sentAt.Format("15:04:05")
	value["reactions"] = map[string][]string{}

	var expiresAt *time.Time
	if raw, ok := value["expiresAt"].(string); ok && raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			minExpiry := now.Add(constants.MinEphemeralSeconds * time.Second)
			maxExpiry := now.Add(constants.MaxEphemeralSeconds * time.Second)
			if parsed.Before(minExpiry) {
				parsed = minExpiry
			}
			if parsed.After(maxExpiry) {
				parsed = maxExpiry
			}
			value["expiresAt"] = parsed.Format(time.RFC3339)
			value["ephemeral"] = true
			expiresAt = &parsed
		} else {
			delete(value, "expiresAt")
		}
	}

	content, err := json.Marshal(value)
	if err != nil {
		return
	}

	id, err := c.app.messages.Create(backgroundCtx, c.channel, string(content))
	if err != nil {
		c.writeText(errorFrame(constants.ErrCodeInternal))
		return
	}

	value["id"] = id
	out := mustMarshal(value)
	c.app.buses.publishChannel(c.channel, out)

	if expiresAt != nil {
		c.scheduleEphemeralDelete(id, c.channel, *expiresAt)
	}
}

// scheduleEphemeralDelete sleeps until expiresAt (clamped to a sane bound)
// then deletes the message and broadcasts its removal, detached from any
// connection's lifetime.
func (c *connection) scheduleEphemeralDelete(id int64, channel string, expiresAt time.Time) {
	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}
	if delay > constants.MaxEphemeralSeconds*time.Second {
		delay = constants.MaxEphemeralSeconds * time.Second
	}
	app := c.app
	go func() {
		time.Sleep(delay)
		if _, err := app.messages.Delete(backgroundCtx, id); err != nil {
			return
		}
		app.buses.publishChannel(channel, mustMarshal(map[string]any{
			"type": "message-deleted", "id": id, "channel": channel,
		}))
	}()
}

func (c *connection) handleDeleteMessage(frame []byte) {
	var req deleteMessageRequest
	if err := json.Unmarshal(frame, &req); err != nil || req.ID == 0 {
		c.writeText(errorFrame(constants.ErrInvalidMessageID))
		return
	}

	channel, _, err := c.app.messages.FindByID(backgroundCtx, req.ID)
	if err != nil {
		c.writeText(errorFrame(constants.ErrMessageNotFound))
		return
	}
	if channel != c.channel {
		c.writeText(errorFrame(constants.ErrMessageWrongChannel))
		return
	}

	author, _ := c.messageAuthor(req.ID)
	if author != c.user && !c.canManageChannels() {
		c.writeText(errorFrame(constants.ErrMessagePermission))
		return
	}

	if _, err := c.app.messages.Delete(backgroundCtx, req.ID); err != nil {
		c.writeText(errorFrame(constants.ErrMessageDeleteFail))
		return
	}
	c.app.buses.publishChannel(channel, mustMarshal(map[string]any{
		"type": "message-deleted", "id": req.ID, "channel": channel,
	}))
}

func (c *connection) messageAuthor(id int64) (string, error) {
	_, content, err := c.app.messages.FindByID(backgroundCtx, id)
	if err != nil {
		return "", err
	}
	var value struct {
		User string `json:"user"`
	}
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return "", err
	}
	return value.User, nil
}

func (c *connection) handleReact(frame []byte) {
	var req reactRequest
	if err := json.Unmarshal(frame, &req); err != nil || req.MessageID == 0 {
		c.writeText(errorFrame(constants.ErrInvalidMessageID))
		return
	}
	emoji := strings.TrimSpace(req.Emoji)
	if !validEmoji(emoji) {
		c.writeText(errorFrame(constants.ErrInvalidEmoji))
		return
	}
	if req.Action != "add" && req.Action != "remove" {
		c.writeText(errorFrame(constants.ErrInvalidReactionAction))
		return
	}

	channel, _, err := c.app.messages.FindByID(backgroundCtx, req.MessageID)
	if err != nil {
		c.writeText(errorFrame(constants.ErrMessageNotFound))
		return
	}

	if req.Action == "add" {
		err = c.app.reactions.Add(backgroundCtx, req.MessageID, c.user, emoji)
	} else {
		err = c.app.reactions.Remove(backgroundCtx, req.MessageID, c.user, emoji)
	}
	if err != nil {
		c.writeText(errorFrame(constants.ErrReactionFailed))
		return
	}

	summary, err := c.app.reactions.Summary(backgroundCtx, req.MessageID)
	if err != nil {
		c.writeText(errorFrame(constants.ErrReactionFailed))
		return
	}
	c.app.buses.publishChannel(channel, mustMarshal(map[string]any{
		"type": "reaction-update", "channel": channel, "messageId": req.MessageID, "reactions": summary,
	}))
}

func (c *connection) handleStatusUpdate(frame []byte) {
	var req statusUpdateRequest
	if err := json.Unmarshal(frame, &req); err != nil || !validStatus(req.Status) {
		c.writeText(errorFrame(constants.ErrInvalidStatus))
		return
	}
	c.app.state.SetStatus(c.user, req.Status)
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type": "status-update", "user": c.user, "status": req.Status,
	}))
}

func (c *connection) handlePing(frame []byte) {
	var req pingRequest
	json.Unmarshal(frame, &req)
	c.writeText(mustMarshal(map[string]any{"type": "pong", "id": req.ID}))
}

// handleVoiceJoin enforces the at-most-one-room invariant, broadcasts the
// updated member list for the target room, and separately relays the raw
// inbound frame on the global bus so peers can pick up signalling metadata
// the dispatch engine does not itself interpret.
func (c *connection) handleVoiceJoin(frame []byte) {
	var req voiceRoomRequest
	if err := json.Unmarshal(frame, &req); err != nil || req.Channel == "" {
		return
	}
	members, created := c.app.voice.join(c.user, req.Channel)
	c.voiceChannel = req.Channel
	if created {
		quality, bitrate, _ := c.app.voice.get(req.Channel)
		c.app.buses.publishGlobal(mustMarshal(map[string]any{
			"type": "voice-channel-add", "channel": req.Channel, "quality": quality, "bitrate": bitrate,
		}))
	}
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type": "voice-users", "channel": req.Channel, "users": members,
	}))
	c.app.buses.publishGlobal(frame)
}

func (c *connection) handleVoiceLeave(frame []byte) {
	var req voiceRoomRequest
	if err := json.Unmarshal(frame, &req); err != nil || req.Channel == "" {
		return
	}
	members := c.app.voice.leave(c.user, req.Channel)
	if c.voiceChannel == req.Channel {
		c.voiceChannel = ""
	}
	c.app.buses.publishGlobal(mustMarshal(map[string]any{
		"type": "voice-users", "channel": req.Channel, "users": members,
	}))
	c.app.buses.publishGlobal(frame)
}
