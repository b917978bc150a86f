package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ValidateSignature reports whether signature is the base64-encoded
// HMAC-SHA256 digest of body under the channel secret.
//
// body must be the raw request body exactly as received, before any JSON
// parsing; re-serializing a parsed body changes byte order and whitespace and
// breaks the check. The comparison is constant time.
func ValidateSignature(body []byte, channelSecret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
