package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Signature header candidates, first present wins.
var signatureHeaders = []string{"x-webhook-signature", "x-signature"}

// Verify checks webhook authenticity: an HMAC-SHA256 hex digest over the
// canonical JSON-serialized payload, keyed by the per-webhook secret.
// A missing signature header is a verification failure, not an exemption.
func Verify(payload map[string]any, headers map[string]string, secret string) bool {
	signature := signatureFrom(headers)
	if signature == "" {
		return false
	}

	canonical, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func signatureFrom(headers map[string]string) string {
	lowered := make(map[string]string, len(headers))
	for k, v := range headers {
		lowered[strings.ToLower(k)] = v
	}
	for _, name := range signatureHeaders {
		if v, ok := lowered[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Sign computes the digest a trusted sender would attach.
func Sign(payload map[string]any, secret string) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
