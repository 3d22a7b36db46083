package wireguard

import (
	"bytes"
	"encoding/base64"

	"golang.org/x/crypto/curve25519"
)

// headerPublicKey picks the public key out of the first two header columns.
// When the first column derives the second it is a private key (wg(8) order)
// and the second column is returned; otherwise the first one is.
func headerPublicKey(first, second string) string {
	first, second = noneToEmpty(first), noneToEmpty(second)
	if derivesPublicKey(first, second) {
		return second
	}
	return first
}

// derivesPublicKey reports whether pub == X25519(priv, basepoint).
func derivesPublicKey(priv, pub string) bool {
	privKey, ok := decodeKey(priv)
	if !ok {
		return false
	}
	pubKey, ok := decodeKey(pub)
	if !ok {
		return false
	}
	derived, err := curve25519.X25519(privKey, curve25519.Basepoint)
	if err != nil {
		return false
	}
	return bytes.Equal(derived, pubKey)
}

func decodeKey(v string) ([]byte, bool) {
	if v == "" {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(v)
	if err != nil || len(raw) != curve25519.ScalarSize {
		return nil, false
	}
	return raw, true
}
