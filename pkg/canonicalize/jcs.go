// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization and content hashing for every artifact the pipeline compares.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
)

// HashPrefix tags every content hash produced by this package.
const HashPrefix = "sha256:"

// ErrCanonicalization is returned for values that have no canonical form:
// non-finite numbers, functions, channels and cyclic structures.
var ErrCanonicalization = errors.New("canonicalization error")

// JCS returns the RFC 8785 canonical JSON representation of v.
//
// The value is first marshalled with encoding/json so struct tags and
// omitempty are honoured, then transformed: object keys sorted by UTF-16
// code units at every level, arrays kept in order, no insignificant
// whitespace, HTML characters left unescaped, numbers in ES6 form.
func JCS(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: pre-marshal: %v", ErrCanonicalization, err)
	}
	return Transform(intermediate)
}

// Transform canonicalizes raw JSON text.
func Transform(data []byte) ([]byte, error) {
	out, err := jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("%w: transform: %v", ErrCanonicalization, err)
	}
	return out, nil
}

// JCSString returns the JCS canonical form as a string.
func JCSString(v interface{}) (string, error) {
	data, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CanonicalHash returns "sha256:<hex>" over the canonical JSON of v.
func CanonicalHash(v interface{}) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 of raw bytes in "sha256:<hex>" form.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// Equal reports whether a and b canonicalize to the same bytes.
func Equal(a, b interface{}) (bool, error) {
	ab, err := JCS(a)
	if err != nil {
		return false, err
	}
	bb, err := JCS(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}

// ToGeneric round-trips v through JSON into maps, slices and json.Number
// values so it can be inspected without struct knowledge.
func ToGeneric(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: pre-marshal: %v", ErrCanonicalization, err)
	}
	return DecodeGeneric(data)
}

// DecodeGeneric decodes JSON text preserving number literals.
func DecodeGeneric(data []byte) (interface{}, error) {
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode: trailing data after JSON value")
	}
	return generic, nil
}
