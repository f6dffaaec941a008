package cloud

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignMethod is sent in the sign_method header of every request.
const SignMethod = "HMAC-SHA256"

// Sign returns the uppercase hex HMAC-SHA256 of stringToSign keyed with secret.
// Callers assemble the string to sign; Sign knows nothing about the protocol.
func Sign(secret, stringToSign string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// ContentHash returns the lowercase hex SHA-256 of a request body.
// A nil body hashes as the empty string.
func ContentHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// requestStringToSign builds the canonical string for a generic API call:
// method, body hash, an empty header block, then the path with query.
func requestStringToSign(method string, body []byte, path string) string {
	return method + "\n" + ContentHash(body) + "\n\n" + path
}
