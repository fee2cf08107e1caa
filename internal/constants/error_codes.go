// Package constants holds wire-level error codes and protocol limits shared
// between the WebSocket dispatch engine and the HTTP surface.
package constants

// Error codes sent in {"type":"error","message":"<code>"} frames and, where
// noted, as HTTP error bodies. These strings are part of the wire contract
// and must never change shape once a client depends on them.
const (
	ErrUnauthenticated    = "unauthenticated"
	ErrInvalidPassword    = "invalid-password"
	ErrAuthRateLimit      = "auth-rate-limit"
	ErrInvalidTimestamp   = "invalid-timestamp"
	ErrReplayAttack       = "replay-attack"
	ErrInvalidSignature   = "invalid-signature"
	ErrInvalidSigFormat   = "invalid-signature-format"
	ErrInvalidPublicKey   = "invalid-public-key"
	ErrInvalidKeyLength   = "invalid-key-length"
	ErrInvalidEncoding    = "invalid-encoding"
	ErrInvalidUsername    = "invalid-username"
	ErrInvalidChannelName = "invalid-channel-name"
	ErrCannotDeleteGeneral = "cannot-delete-general"
	ErrChannelPermission  = "channel-permission-denied"
	ErrChannelCreateFail  = "channel-creation-failed"
	ErrChannelDeleteFail  = "channel-deletion-failed"
	ErrMessageRateLimit   = "message-rate-limit"
	ErrInvalidVoiceQuality = "invalid-voice-quality"
	ErrInvalidVoiceBitrate = "invalid-voice-bitrate"
	ErrUnknownVoiceChannel = "unknown-voice-channel"
	ErrVoiceChannelUpdateFail = "voice-channel-update-failed"
	ErrInvalidMessageID   = "invalid-message-id"
	ErrInvalidReactionAction = "invalid-reaction-action"
	ErrInvalidEmoji       = "invalid-emoji"
	ErrMessageNotFound    = "message-not-found"
	ErrReactionFailed     = "reaction-failed"
	ErrMessageWrongChannel = "message-wrong-channel"
	ErrMessagePermission  = "message-permission-denied"
	ErrMessageDeleteFail  = "message-delete-failed"
	ErrNotAuthenticated   = "not-authenticated"
	ErrInvalidStatus      = "invalid-status"

	// HTTP admin surface errors, same kebab-case convention.
	ErrCodeInvalidRequest = "invalid-request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeNotFound       = "not-found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal-error"
	ErrCodeRateLimited    = "rate-limited"
)

// Protocol limits, grounded in the original server's ws/constants.rs.
const (
	MinEphemeralSeconds = 5
	MaxEphemeralSeconds = 86400

	MaxSearchResults   = 200
	MaxHistoryLimit    = 200
	DefaultHistoryLimit = 50

	MaxUsernameLength    = 32
	MaxChannelNameLength = 50
	MaxVoiceQualityLength = 32
	MaxEmojiLength       = 16

	DefaultVoiceQuality = "standard"
	DefaultVoiceBitrate = 64000
	MaxVoiceBitrate     = 320000

	GeneralChannel = "general"
)

// ManageRoles lists the role names (case-insensitive) allowed to create,
// update, or delete channels when an admin token is configured.
var ManageRoles = []string{"Admin", "Mod", "Owner"}

// UserStatuses enumerates the presence values a client may set.
var UserStatuses = []string{"online", "away", "busy", "offline"}
