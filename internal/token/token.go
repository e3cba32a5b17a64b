package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token expired")
)

// payload structure for encoding/decoding
type payload struct {
	SessionID string `json:"s"`
	TS        int64  `json:"t"`
}

// Sign creates a signed cookie value carrying sessionID.
func Sign(sessionID string, secret []byte) (string, error) {
	return signAt(sessionID, secret, time.Now())
}

func signAt(sessionID string, secret []byte, at time.Time) (string, error) {
	if sessionID == "" {
		return "", ErrInvalid
	}
	data, err := json.Marshal(payload{SessionID: sessionID, TS: at.Unix()})
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	sig := mac.Sum(nil)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(data) + "." + enc.EncodeToString(sig), nil
}

// Verify checks the token integrity and expiry and returns the session ID.
// A zero ttl disables the expiry check.
func Verify(token string, secret []byte, ttl time.Duration) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", ErrInvalid
	}
	enc := base64.RawURLEncoding
	data, err := enc.DecodeString(parts[0])
	if err != nil {
		return "", ErrInvalid
	}
	sig, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalid
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return "", ErrInvalid
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil || pl.SessionID == "" {
		return "", ErrInvalid
	}
	if ttl > 0 && time.Since(time.Unix(pl.TS, 0)) > ttl {
		return "", ErrExpired
	}
	return pl.SessionID, nil
}
