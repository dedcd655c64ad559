// SPDX-License-Identifier: MPL-2.0

// Package digest models cryptographic digests used to pin mod artifacts.
//
// A digest is written as "<algorithm>:<hex>", e.g.
// "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08".
// BLAKE3 is the native pin format for pack manifests; SHA-256 and SHA-512
// are accepted because mod providers declare them in download metadata.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strings"

	"lukechampine.com/blake3"
)

// ErrUnsupportedAlgorithm reports a digest algorithm this package does not
// implement. Retrying an operation that failed with it cannot succeed.
var ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")

// Algorithm identifies a supported digest algorithm.
type Algorithm string

const (
	// SHA256 is the SHA-2 256-bit algorithm.
	SHA256 Algorithm = "sha256"
	// SHA512 is the SHA-2 512-bit algorithm.
	SHA512 Algorithm = "sha512"
	// BLAKE3 is the BLAKE3 algorithm with a 256-bit output.
	BLAKE3 Algorithm = "blake3"
)

// hexLen maps each algorithm to the expected hex-encoded digest length.
var hexLen = map[Algorithm]int{
	SHA256: 64,
	SHA512: 128,
	BLAKE3: 64,
}

// Supported reports whether the algorithm is known to this package.
func (a Algorithm) Supported() bool {
	_, ok := hexLen[a]
	return ok
}

// New returns a fresh hash.Hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case BLAKE3:
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, a)
	}
}

// Digest is an algorithm plus a lowercase hex-encoded hash value.
// The zero value means "no digest".
type Digest struct {
	Algorithm Algorithm
	Hex       string
}

// Parse parses a digest in "<algorithm>:<hex>" form.
func Parse(s string) (Digest, error) {
	algo, hexPart, found := strings.Cut(s, ":")
	if !found {
		return Digest{}, fmt.Errorf("invalid digest %q: missing algorithm prefix", s)
	}

	d := Digest{Algorithm: Algorithm(algo), Hex: strings.ToLower(hexPart)}
	if err := d.Validate(); err != nil {
		return Digest{}, err
	}
	return d, nil
}

// MustParse parses a digest and panics on error. Intended for test fixtures
// and compile-time constants only.
func MustParse(s string) Digest {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromBytes computes the digest of data using the given algorithm.
func FromBytes(algo Algorithm, data []byte) (Digest, error) {
	h, err := algo.New()
	if err != nil {
		return Digest{}, err
	}
	h.Write(data)
	return Digest{Algorithm: algo, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// FromReader computes the digest of everything read from r.
func FromReader(algo Algorithm, r io.Reader) (Digest, error) {
	h, err := algo.New()
	if err != nil {
		return Digest{}, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, fmt.Errorf("failed to hash stream: %w", err)
	}
	return Digest{Algorithm: algo, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// Validate checks that the algorithm is supported and the hex value has the
// expected length and character set.
func (d Digest) Validate() error {
	want, ok := hexLen[d.Algorithm]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, d.Algorithm)
	}
	if len(d.Hex) != want {
		return fmt.Errorf("invalid %s digest: expected %d hex characters, got %d", d.Algorithm, want, len(d.Hex))
	}
	if _, err := hex.DecodeString(d.Hex); err != nil {
		return fmt.Errorf("invalid %s digest: %w", d.Algorithm, err)
	}
	return nil
}

// Canonical returns the digest with its hex value lowercased. Hex decoding
// accepts both cases, so digests taken from external metadata must be
// canonicalized before they are compared or used as store keys.
func (d Digest) Canonical() Digest {
	d.Hex = strings.ToLower(d.Hex)
	return d
}

// IsZero reports whether this is the zero digest.
func (d Digest) IsZero() bool {
	return d.Algorithm == "" && d.Hex == ""
}

// String returns the canonical "<algorithm>:<hex>" form.
func (d Digest) String() string {
	return string(d.Algorithm) + ":" + d.Hex
}

// MismatchError reports that streamed content did not hash to the digest it
// was declared with. It is permanent: retrying the same input cannot change
// the outcome.
type MismatchError struct {
	Declared Digest
	Actual   Digest
}

// Error returns the mismatch description with both digest values.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("digest mismatch: declared %s, got %s", e.Declared, e.Actual)
}

// Verifier is an io.Writer that hashes everything written to it and checks
// the result against a declared digest.
type Verifier struct {
	declared Digest
	hash     hash.Hash
}

// NewVerifier creates a Verifier for the declared digest. The declared hex
// is canonicalized so a provider's uppercase spelling still matches.
func NewVerifier(declared Digest) (*Verifier, error) {
	declared = declared.Canonical()
	if err := declared.Validate(); err != nil {
		return nil, err
	}
	h, err := declared.Algorithm.New()
	if err != nil {
		return nil, err
	}
	return &Verifier{declared: declared, hash: h}, nil
}

// Write feeds data into the underlying hash. It never fails.
func (v *Verifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

// Actual returns the digest of everything written so far.
func (v *Verifier) Actual() Digest {
	return Digest{
		Algorithm: v.declared.Algorithm,
		Hex:       hex.EncodeToString(v.hash.Sum(nil)),
	}
}

// Verify compares the accumulated hash against the declared digest and
// returns a *MismatchError when they differ.
func (v *Verifier) Verify() error {
	actual := v.Actual()
	if actual != v.declared {
		return &MismatchError{Declared: v.declared, Actual: actual}
	}
	return nil
}
