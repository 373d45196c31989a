// Package cryptox computes content fingerprints for uploaded catalog files.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Fingerprint streams r through SHA-256 and returns the hex digest along with
// the number of bytes read.
func Fingerprint(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// FingerprintTee is like Fingerprint but also copies the stream into w, so an
// upload can be hashed and persisted in a single pass.
func FingerprintTee(w io.Writer, r io.Reader) (string, int64, error) {
	return Fingerprint(io.TeeReader(r, w))
}
