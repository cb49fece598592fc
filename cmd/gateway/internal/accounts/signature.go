package accounts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the hex HMAC-SHA256 of a credit request.
const SignatureHeader = "X-Payment-Signature"

// Sign computes the credit signature over "<userID>|<body>".
func Sign(secret []byte, userID string, body []byte) string {
	return hex.EncodeToString(digest(secret, userID, body))
}

// VerifySignature reports whether sig matches the request. An empty secret
// never verifies.
func VerifySignature(secret []byte, userID string, body []byte, sig string) bool {
	if len(secret) == 0 || sig == "" {
		return false
	}
	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(want, digest(secret, userID, body))
}

func digest(secret []byte, userID string, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userID))
	mac.Write([]byte("|"))
	mac.Write(body)
	return mac.Sum(nil)
}
