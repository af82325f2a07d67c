// Package auth verifies administrator API keys.
//
// Keys are never stored. Configuration holds hex HMAC-SHA256 digests of the
// keys, computed with a server-side pepper.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned for a missing or unknown key.
var ErrUnauthorized = errors.New("unauthorized")

// Keys holds the accepted key digests.
type Keys struct {
	pepper []byte
	hashes [][]byte
}

// NewKeys decodes hex digests. With no digests every key is accepted.
func NewKeys(pepper string, hexHashes []string) (*Keys, error) {
	k := &Keys{pepper: []byte(pepper)}
	for i, h := range hexHashes {
		b, err := hex.DecodeString(h)
		if err != nil {
			return nil, errors.Wrapf(err, "key hash %d", i)
		}
		if len(b) != sha256.Size {
			return nil, errors.Errorf("key hash %d: got %d bytes, want %d", i, len(b), sha256.Size)
		}
		k.hashes = append(k.hashes, b)
	}
	return k, nil
}

// Enabled reports whether any key digest is configured.
func (k *Keys) Enabled() bool {
	return len(k.hashes) > 0
}

// Hash returns the hex digest of key, as it should appear in configuration.
func (k *Keys) Hash(key string) string {
	return hex.EncodeToString(k.sum(key))
}

// Verify checks key against every configured digest in constant time.
func (k *Keys) Verify(key string) error {
	if !k.Enabled() {
		return nil
	}
	if key == "" {
		return ErrUnauthorized
	}
	sum := k.sum(key)
	match := 0
	for _, h := range k.hashes {
		match |= subtle.ConstantTimeCompare(sum, h)
	}
	if match != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (k *Keys) sum(key string) []byte {
	mac := hmac.New(sha256.New, k.pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}
