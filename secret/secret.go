// Package secret turns plaintext passwords into the one-way hashes stored
// with posts and comments.
package secret

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/aquilax/tripcode"
)

type Hasher interface {
	Hash(plain string) string
}

// Tripcode hashes with the classic imageboard tripcode algorithm.
type Tripcode struct{}

func (Tripcode) Hash(plain string) string {
	return tripcode.Tripcode(plain)
}

// HMAC hashes with HMAC-SHA256 under a server-side key, so stored hashes are
// useless without the key.
type HMAC struct {
	key []byte
}

func NewHMAC(key string) *HMAC {
	return &HMAC{key: []byte(key)}
}

func (h *HMAC) Hash(plain string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil))
}
