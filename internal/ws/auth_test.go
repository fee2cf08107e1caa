package ws

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"murmer/internal/constants"
)

func signTimestamp(t *testing.T, priv ed25519.PrivateKey, timestamp string) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(timestamp)))
}

func TestVerifySignatureSuccess(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig := signTimestamp(t, priv, timestamp)
	pubB64 := base64.StdEncoding.EncodeToString(pub)

	if code := verifySignature(pubB64, sig, timestamp); code != "" {
		t.Fatalf("verifySignature() = %q, want success", code)
	}
}

func TestVerifySignatureRejectsTamperedTimestamp(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig := signTimestamp(t, priv, timestamp)
	pubB64 := base64.StdEncoding.EncodeToString(pub)

	if code := verifySignature(pubB64, sig, timestamp+"1"); code != constants.ErrInvalidSignature {
		t.Fatalf("verifySignature() = %q, want %q", code, constants.ErrInvalidSignature)
	}
}

func TestVerifySignatureRejectsMalformedEncoding(t *testing.T) {
	if code := verifySignature("not-base64!!", "also-not-base64!!", "123"); code != constants.ErrInvalidEncoding {
		t.Fatalf("verifySignature() = %q, want %q", code, constants.ErrInvalidEncoding)
	}
}

func TestVerifySignatureRejectsWrongLengthKey(t *testing.T) {
	shortKey := base64.StdEncoding.EncodeToString([]byte("too-short"))
	_, priv, _ := ed25519.GenerateKey(nil)
	sig := signTimestamp(t, priv, "123")

	if code := verifySignature(shortKey, sig, "123"); code != constants.ErrInvalidKeyLength {
		t.Fatalf("verifySignature() = %q, want %q", code, constants.ErrInvalidKeyLength)
	}
}

func TestVerifySignatureRejectsWrongLengthSignature(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	pubB64 := base64.StdEncoding.EncodeToString(pub)
	shortSig := base64.StdEncoding.EncodeToString([]byte("too-short"))

	if code := verifySignature(pubB64, shortSig, "123"); code != constants.ErrInvalidSigFormat {
		t.Fatalf("verifySignature() = %q, want %q", code, constants.ErrInvalidSigFormat)
	}
}

func TestCheckTimestampWithinWindow(t *testing.T) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if _, ok := checkTimestamp(now); !ok {
		t.Fatal("expected current timestamp to be accepted")
	}
}

func TestCheckTimestampRejectsStaleAndFuture(t *testing.T) {
	tooOld := strconv.FormatInt(time.Now().Add(-2*time.Minute).UnixMilli(), 10)
	if _, ok := checkTimestamp(tooOld); ok {
		t.Fatal("expected timestamp older than the skew window to be rejected")
	}

	tooFuture := strconv.FormatInt(time.Now().Add(2*time.Hour).UnixMilli(), 10)
	if _, ok := checkTimestamp(tooFuture); ok {
		t.Fatal("expected timestamp more than 1h in the future to be rejected")
	}

	if _, ok := checkTimestamp("not-a-number"); ok {
		t.Fatal("expected unparseable timestamp to be rejected")
	}
}

func TestAuthGuardCheckReplayRejectsRepeat(t *testing.T) {
	g := newAuthGuard(5, 300)

	if g.checkReplay("key-a", "123") {
		t.Fatal("expected first use of a (key, timestamp) pair to not be a replay")
	}
	if !g.checkReplay("key-a", "123") {
		t.Fatal("expected repeated (key, timestamp) pair to be flagged as a replay")
	}
	if g.checkReplay("key-a", "124") {
		t.Fatal("expected a different timestamp for the same key to not be a replay")
	}
}

func TestAuthGuardAllowAttemptRateLimits(t *testing.T) {
	g := newAuthGuard(2, 300)

	if !g.allowAttempt("1.2.3.4") {
		t.Fatal("expected first attempt to be allowed")
	}
	if !g.allowAttempt("1.2.3.4") {
		t.Fatal("expected second attempt to be allowed")
	}
	if g.allowAttempt("1.2.3.4") {
		t.Fatal("expected third attempt within the window to be rate limited")
	}
}
