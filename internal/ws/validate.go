package ws

import (
	"strings"

	"murmer/internal/constants"
)

// validName reports whether name is non-empty, trim-stable, at most maxLen
// bytes, and composed only of ASCII letters, digits, '-', '_', or space.
func validName(name string, maxLen int) bool {
	if name == "" || len(name) > maxLen {
		return false
	}
	if strings.TrimSpace(name) != name {
		return false
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		if r == '-' || r == '_' || r == ' ' {
			continue
		}
		return false
	}
	return true
}

func validUsername(name string) bool {
	return validName(name, constants.MaxUsernameLength)
}

func validChannelName(name string) bool {
	return validName(name, constants.MaxChannelNameLength)
}

func validVoiceQuality(quality string) bool {
	return validName(quality, constants.MaxVoiceQualityLength)
}

func validBitrate(bitrate int) bool {
	return bitrate > 0 && bitrate <= constants.MaxVoiceBitrate
}

func validEmoji(emoji string) bool {
	if emoji == "" || len([]rune(emoji)) > constants.MaxEmojiLength {
		return false
	}
	for _, r := range emoji {
		if r <= ' ' {
			return false
		}
	}
	return true
}

func validStatus(status string) bool {
	for _, s := range constants.UserStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func hasManageRole(role string) bool {
	for _, r := range constants.ManageRoles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func defaultRoleColor(role string) string {
	switch strings.ToLower(role) {
	case "admin":
		return "#eab308"
	case "mod":
		return "#10b981"
	case "owner":
		return "#3b82f6"
	default:
		return ""
	}
}
