package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sign computes the hex HMAC-SHA256 of the canonical serialization of the
// payload. encoding/json marshals map keys in sorted order, which makes the
// serialization canonical for nested maps as well.
func Sign(secret []byte, payload map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(secret []byte, payload map[string]interface{}, signature string) bool {
	expected, err := Sign(secret, payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
