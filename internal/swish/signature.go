package swish

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dalsjofors/hyrservice/internal/entity"
)

const signaturePrefix = "sha256="

// SignPayload computes the callback signature header value for a raw body.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an X-Swish-Signature header against the raw
// request body. Comparison is constant-time. When no secret is configured
// (mock mode) unsigned callbacks are accepted.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return nil
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return entity.ErrInvalidSignature
	}
	expected := SignPayload(secret, body)
	if !hmac.Equal([]byte(expected), []byte(header)) {
		return entity.ErrInvalidSignature
	}
	return nil
}
