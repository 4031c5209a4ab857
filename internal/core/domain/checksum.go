package domain

import (
	"crypto/md5"  //nolint:gosec // archives publish md5 checksums
	"crypto/sha1" //nolint:gosec // archives publish sha1 checksums
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Supported checksum algorithms.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmSHA512 = "sha512"
	AlgorithmSHA1   = "sha1"
	AlgorithmMD5    = "md5"
)

// Checksum is an expected content digest. The zero value means
// "no verification".
type Checksum struct {
	// Algorithm is the normalised algorithm name (e.g. "sha256").
	Algorithm string

	// Value is the lowercase hex digest.
	Value string
}

// IsZero returns true if no checksum is known.
func (c Checksum) IsZero() bool {
	return c.Value == ""
}

// String renders the checksum as "algorithm:value".
func (c Checksum) String() string {
	if c.IsZero() {
		return ""
	}
	return c.Algorithm + ":" + c.Value
}

// NewHash returns a fresh hasher for the checksum algorithm.
func (c Checksum) NewHash() (hash.Hash, error) {
	return NewHash(c.Algorithm)
}

// Matches reports whether a hex digest equals the expected value.
func (c Checksum) Matches(digest string) bool {
	return strings.EqualFold(c.Value, digest)
}

// NewHash returns a hasher for a normalised algorithm name.
func NewHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return sha256.New(), nil
	case AlgorithmSHA512:
		return sha512.New(), nil
	case AlgorithmSHA1:
		return sha1.New(), nil //nolint:gosec // verification only
	case AlgorithmMD5:
		return md5.New(), nil //nolint:gosec // verification only
	default:
		return nil, fmt.Errorf("%w: checksum algorithm %q", ErrUnsupportedType, algorithm)
	}
}

// NormalizeAlgorithm maps the spellings found in archives and SPDX
// metadata to a supported algorithm name. Accepted forms include
// "SHA-256", "sha_256", "http://spdx.org/rdf/terms#checksumAlgorithm_sha256"
// and IRIs ending in the algorithm name.
func NormalizeAlgorithm(algorithm string) (string, error) {
	a := strings.TrimSpace(algorithm)
	if strings.Contains(a, "checksumAlgorithm_") {
		a = a[strings.LastIndex(a, "_")+1:]
	} else if strings.HasPrefix(a, "http://") || strings.HasPrefix(a, "https://") {
		a = a[strings.LastIndexAny(a, "/#")+1:]
	}
	a = strings.ToLower(a)
	a = strings.NewReplacer("-", "", "_", "").Replace(a)
	switch a {
	case AlgorithmSHA256, AlgorithmSHA512, AlgorithmSHA1, AlgorithmMD5:
		return a, nil
	default:
		return "", fmt.Errorf("%w: checksum algorithm %q", ErrUnsupportedType, algorithm)
	}
}

// NewChecksum builds a checksum from an algorithm in any accepted
// spelling and a hex value. The value must be a hex digest of the
// algorithm's size.
func NewChecksum(algorithm, value string) (Checksum, error) {
	alg, err := NormalizeAlgorithm(algorithm)
	if err != nil {
		return Checksum{}, err
	}
	c := Checksum{Algorithm: alg, Value: strings.ToLower(strings.TrimSpace(value))}
	if err := c.Validate(); err != nil {
		return Checksum{}, err
	}
	return c, nil
}

// Validate checks that the value is a lowercase hex digest of the
// algorithm's size. The zero checksum is valid.
func (c Checksum) Validate() error {
	if c.IsZero() {
		return nil
	}
	h, err := NewHash(c.Algorithm)
	if err != nil {
		return err
	}
	if len(c.Value) != 2*h.Size() {
		return fmt.Errorf("%w: %s checksum %q must have %d hex digits", ErrInvalidInput, c.Algorithm, c.Value, 2*h.Size())
	}
	if _, err := hex.DecodeString(c.Value); err != nil || strings.ToLower(c.Value) != c.Value {
		return fmt.Errorf("%w: %s checksum %q is not lowercase hex", ErrInvalidInput, c.Algorithm, c.Value)
	}
	return nil
}

// ParseChecksum parses "algorithm:value" (Zenodo style). A bare 64 hex
// character value is taken as sha256 and a bare 32 character value as md5.
// An empty string yields the zero checksum.
func ParseChecksum(s string) (Checksum, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Checksum{}, nil
	}
	if alg, val, ok := strings.Cut(s, ":"); ok {
		return NewChecksum(alg, val)
	}
	switch len(s) {
	case 64:
		return NewChecksum(AlgorithmSHA256, s)
	case 32:
		return NewChecksum(AlgorithmMD5, s)
	default:
		return Checksum{}, fmt.Errorf("%w: checksum %q has no algorithm", ErrInvalidInput, s)
	}
}
