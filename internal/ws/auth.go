package ws

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"sync"
	"time"

	"murmer/internal/constants"
)

const (
	timestampSkewFuture = time.Hour
	timestampSkewPast   = 24 * time.Hour
	timestampSkewNow    = 60 * time.Second
)

// authGuard implements §4.2: per-IP auth rate limiting and the replay-nonce
// store, both independent of the Ed25519 signature check itself.
type authGuard struct {
	rateLimiter *slidingWindowLimiter

	nonceMu  sync.Mutex
	nonces   map[string]time.Time
	nonceTTL time.Duration
}

func newAuthGuard(maxAuthAttemptsPerMinute, nonceExpirySeconds int) *authGuard {
	return &authGuard{
		rateLimiter: newSlidingWindowLimiter(maxAuthAttemptsPerMinute, time.Minute),
		nonces:      make(map[string]time.Time),
		nonceTTL:    time.Duration(nonceExpirySeconds) * time.Second,
	}
}

func (g *authGuard) allowAttempt(ip string) bool {
	return g.rateLimiter.Allow(ip, time.Now())
}

// checkReplay sweeps expired nonces and reports whether (publicKey,
// timestamp) has already authenticated within the TTL window. On a fresh
// pair it records the attempt and returns false (not a replay).
func (g *authGuard) checkReplay(publicKey, timestamp string) bool {
	key := publicKey + ":" + timestamp
	now := time.Now()

	g.nonceMu.Lock()
	defer g.nonceMu.Unlock()

	for k, seen := range g.nonces {
		if now.Sub(seen) > g.nonceTTL {
			delete(g.nonces, k)
		}
	}

	if seen, ok := g.nonces[key]; ok && now.Sub(seen) <= g.nonceTTL {
		return true
	}

	g.nonces[key] = now
	return false
}

// checkTimestamp parses a decimal milliseconds-since-epoch string and
// enforces it is within ±60s of now, never more than 1h future, never more
// than 24h in the past.
func checkTimestamp(raw string) (time.Time, bool) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	ts := time.UnixMilli(ms)
	now := time.Now()

	if diff := now.Sub(ts); diff > timestampSkewNow || diff < -timestampSkewNow {
		return time.Time{}, false
	}
	if ts.After(now.Add(timestampSkewFuture)) {
		return time.Time{}, false
	}
	if ts.Before(now.Add(-timestampSkewPast)) {
		return time.Time{}, false
	}
	return ts, true
}

// verifySignature checks the Ed25519 signature of the raw timestamp string
// against the decoded public key, returning the most specific error code on
// failure or "" on success. Check order mirrors the original server: base64
// decode, then key length, then signature length, then the verify itself.
// Go's crypto/ed25519 performs no separate curve-point validation on a
// public key the way some other implementations do, so the distinct
// "invalid-public-key" wire code (reserved for that case) can never be
// produced by this port; a wrong-length key always surfaces as
// invalid-key-length instead.
func verifySignature(publicKeyB64, signatureB64, timestamp string) string {
	key, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return constants.ErrInvalidEncoding
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return constants.ErrInvalidEncoding
	}

	if len(key) != ed25519.PublicKeySize {
		return constants.ErrInvalidKeyLength
	}
	if len(sig) != ed25519.SignatureSize {
		return constants.ErrInvalidSigFormat
	}

	if !ed25519.Verify(ed25519.PublicKey(key), []byte(timestamp), sig) {
		return constants.ErrInvalidSignature
	}
	return ""
}
