package ws

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"

	"murmer/internal/config"
)

// ICEServerInfo is the wire shape of one entry in the "servers" list of the
// "ice-servers" frame sent with the presence snapshot.
type ICEServerInfo struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// generateTURNCredentials produces ephemeral TURN REST API credentials
// (HMAC-SHA1 over "<expiry-unix>:<user>") compatible with coturn's
// static-auth-secret scheme.
func generateTURNCredentials(secret, user string, ttl time.Duration) (username, credential string) {
	expiry := time.Now().Add(ttl).Unix()
	username = fmt.Sprintf("%d:%s", expiry, user)

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	credential = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return
}

// buildICEServers produces the ICE server list for a newly authenticated
// user. Returns nil when no TURN host is configured, so same-LAN peers can
// still attempt a direct connection without a deployed TURN server.
func buildICEServers(cfg config.TURNConfig, user string) []ICEServerInfo {
	if cfg.Host == "" {
		return nil
	}

	stunScheme, turnScheme := "stun", "turn"
	if cfg.TLS {
		stunScheme, turnScheme = "stuns", "turns"
	}
	stunURL := fmt.Sprintf("%s:%s:%d", stunScheme, cfg.Host, cfg.Port)
	turnURL := fmt.Sprintf("%s:%s:%d", turnScheme, cfg.Host, cfg.Port)

	username, credential := generateTURNCredentials(cfg.Secret, user, cfg.TTL)

	return []ICEServerInfo{
		{URLs: []string{stunURL}},
		{URLs: []string{turnURL}, Username: username, Credential: credential},
	}
}
