package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// GenToken returns n random bytes encoded URL-safe, used for one-time email links.
func GenToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
