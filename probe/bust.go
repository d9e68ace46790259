package probe

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
)

// BustParam is the query parameter Bust adds.
const BustParam = "cb"

// Bust returns rawURL with a random cache-busting query parameter so the
// request lands on a fresh cache key.
func Bust(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &ConfigError{Kind: InvalidURL, Field: "url", Err: err}
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(BustParam, hex.EncodeToString(buf))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
