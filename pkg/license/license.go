// Package license implements the job-submission license gate (component C):
// signature verification, expiry, and CPU-MHz capacity accounting.
package license

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Terms is the signed payload of a license file.
type Terms struct {
	CPUMhzLimit    string `json:"cpuMhzLimit"`
	ExpiryDate     string `json:"expiryDate"`
	BoltLicenseKey string `json:"boltLicenseKey"`
}

// File is the on-disk JSON shape: spec.md §6's
// {"license": {...}, "signature": base64(RSA-PKCS1v15-SHA256 over canonical JSON of "license")}.
type File struct {
	License   Terms  `json:"license"`
	Signature string `json:"signature"`
}

// License is a verified, parsed license ready for capacity checks.
type License struct {
	CPUMhzLimit    int64
	ExpiryDate     time.Time
	BoltLicenseKey string
}

// ErrExhausted indicates the requested job would exceed the license's
// CPU-MHz limit — maps to apierr.LicenseExhausted (HTTP 402).
var ErrExhausted = fmt.Errorf("license CPU-MHz limit would be exceeded")

// Load reads, verifies, and parses a license file at path against pub.
func Load(path string, pub *rsa.PublicKey) (*License, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading license file: %w", err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing license file: %w", err)
	}

	canonical, err := canonicalJSON(f.License)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing license payload: %w", err)
	}

	sig, err := base64.StdEncoding.DecodeString(f.Signature)
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}

	digest := sha256.Sum256(canonical)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return nil, fmt.Errorf("license signature verification failed: %w", err)
	}

	expiry, err := time.Parse(time.RFC3339, f.License.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("parsing expiry date: %w", err)
	}

	limit, err := strconv.ParseInt(f.License.CPUMhzLimit, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing cpuMhzLimit: %w", err)
	}

	return &License{
		CPUMhzLimit:    limit,
		ExpiryDate:     expiry,
		BoltLicenseKey: f.License.BoltLicenseKey,
	}, nil
}

// Expired reports whether the license has passed its expiry date as of now.
func (l *License) Expired(now time.Time) bool {
	return !now.Before(l.ExpiryDate)
}

// CheckCapacity returns ErrExhausted if runningMhz+requestedMhz would exceed
// the license's limit.
func (l *License) CheckCapacity(runningMhz, requestedMhz int64) error {
	if runningMhz+requestedMhz > l.CPUMhzLimit {
		return ErrExhausted
	}
	return nil
}

// canonicalJSON serializes v with no extraneous whitespace. Keys follow the
// field order Terms declares (cpuMhzLimit, expiryDate, boltLicenseKey), since
// Go's json.Marshal emits struct fields in declaration order; they are not
// sorted.
func canonicalJSON(v Terms) ([]byte, error) {
	return json.Marshal(v)
}

// LoadPublicKey parses a PEM-encoded RSA public key used to verify license
// signatures. The key is embedded at build time or mounted alongside the
// binary; it is never derived from the license file itself.
func LoadPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA")
	}
	return rsaPub, nil
}

// Sign is a test/tooling helper that signs license terms with a private key,
// producing the on-disk File shape. Production licenses are signed out of
// band; this exists so tests can construct valid fixtures.
func Sign(terms Terms, priv *rsa.PrivateKey) (*File, error) {
	canonical, err := canonicalJSON(terms)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(canonical)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing license: %w", err)
	}
	return &File{License: terms, Signature: base64.StdEncoding.EncodeToString(sig)}, nil
}
