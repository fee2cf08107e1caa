package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"murmer/internal/config"
	"murmer/internal/db"
)

const minuteWindow = time.Minute

// bodyPolicy strips all markup from chat bodies before they are stored;
// clients render message text as plain text, never as HTML.
var bodyPolicy = bluemonday.StrictPolicy()

// App wires together every piece the dispatch engine needs: shared state,
// fan-out buses, voice room membership, persistence, and the rate/auth
// guards. One App is shared by every connection for the process lifetime.
type App struct {
	cfg *config.Config

	state *AppState
	buses *busRegistry
	voice *voiceRoomManager
	auth  *authGuard

	messageLimiter *slidingWindowLimiter

	messages  *db.MessageRepository
	reactions *db.ReactionRepository
	channels  *db.ChannelRepository
	voiceDB   *db.VoiceChannelRepository
	roles     *db.RoleRepository
}

func NewApp(cfg *config.Config, database *db.DB) *App {
	return &App{
		cfg:            cfg,
		state:          newAppState(),
		buses:          newBusRegistry(),
		voice:          newVoiceRoomManager(),
		auth:           newAuthGuard(cfg.MaxAuthAttemptsPerMinute, cfg.NonceExpirySeconds),
		messageLimiter: newSlidingWindowLimiter(cfg.MaxMessagesPerMinute, minuteWindow),
		messages:       db.NewMessageRepository(database),
		reactions:      db.NewReactionRepository(database),
		channels:       db.NewChannelRepository(database),
		voiceDB:        db.NewVoiceChannelRepository(database),
		roles:          db.NewRoleRepository(database),
	}
}

// AdminSetRole persists a role assignment and fans role-update out for every
// known user (online or not) whose recorded public key matches, for the HTTP
// admin surface (§4.9).
func (a *App) AdminSetRole(ctx context.Context, key, role string, color *string) error {
	if err := a.roles.Set(ctx, key, role, color); err != nil {
		slog.Error("persisting role assignment", "key", key, "error", err)
		return err
	}

	resolvedColor := ""
	if color != nil {
		resolvedColor = *color
	} else {
		resolvedColor = defaultRoleColor(role)
	}
	info := RoleInfo{Role: role, Color: resolvedColor}

	for _, user := range a.state.UsersWithKey(key) {
		a.state.SetRole(user, info)
		a.buses.publishGlobal(mustMarshal(map[string]any{
			"type":  "role-update",
			"user":  user,
			"role":  info.Role,
			"color": nullableString(info.Color),
		}))
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
