// Package signature computes the HMAC-SHA256 auth tokens an auth
// endpoint issues for restricted channel subscriptions and user
// signin. Tokens have the form "<app key>:<hex signature>" where the
// signature covers a payload derived from the socket id.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Channel returns the auth token for a channel subscription. For
// presence channels channelData carries the member payload and is
// folded into the signed string; for private channels it is empty.
func Channel(key, secret, socketID, channel, channelData string) string {
	payload := socketID + ":" + channel
	if channelData != "" {
		payload += ":" + channelData
	}
	return Token(key, secret, payload)
}

// User returns the auth token for a user signin.
func User(key, secret, socketID, userData string) string {
	return Token(key, secret, socketID+"::user::"+userData)
}

// Token signs payload with secret and prefixes the app key.
func Token(key, secret, payload string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return key + ":" + hex.EncodeToString(h.Sum(nil))
}

// Valid reports whether token is a well-formed signature of payload
// under key and secret. The comparison is constant time.
func Valid(key, secret, payload, token string) bool {
	prefix, sig, ok := strings.Cut(token, ":")
	if !ok || prefix != key {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	want := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(want))
}
