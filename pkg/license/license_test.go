package license

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func generateKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return priv, &priv.PublicKey
}

func writeLicenseFile(t *testing.T, f *File) string {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshaling license file: %v", err)
	}
	path := filepath.Join(t.TempDir(), "license.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing license file: %v", err)
	}
	return path
}

func TestLoad_ValidLicense(t *testing.T) {
	priv, pub := generateKeyPair(t)
	terms := Terms{CPUMhzLimit: "4000", ExpiryDate: time.Now().Add(24 * time.Hour).Format(time.RFC3339), BoltLicenseKey: "abc123"}

	f, err := Sign(terms, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	path := writeLicenseFile(t, f)

	lic, err := Load(path, pub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if lic.CPUMhzLimit != 4000 {
		t.Errorf("CPUMhzLimit = %d, want 4000", lic.CPUMhzLimit)
	}
	if lic.BoltLicenseKey != "abc123" {
		t.Errorf("BoltLicenseKey = %q, want %q", lic.BoltLicenseKey, "abc123")
	}
}

func TestLoad_BadSignature(t *testing.T) {
	_, pub := generateKeyPair(t)
	otherPriv, _ := generateKeyPair(t)
	terms := Terms{CPUMhzLimit: "4000", ExpiryDate: time.Now().Add(24 * time.Hour).Format(time.RFC3339)}

	f, err := Sign(terms, otherPriv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	path := writeLicenseFile(t, f)

	if _, err := Load(path, pub); err == nil {
		t.Fatal("expected signature verification failure, got nil")
	}
}

func TestLoad_TamperedPayload(t *testing.T) {
	priv, pub := generateKeyPair(t)
	terms := Terms{CPUMhzLimit: "1000", ExpiryDate: time.Now().Add(24 * time.Hour).Format(time.RFC3339)}

	f, err := Sign(terms, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	f.License.CPUMhzLimit = "999999"
	path := writeLicenseFile(t, f)

	if _, err := Load(path, pub); err == nil {
		t.Fatal("expected signature verification failure after tampering, got nil")
	}
}

func TestExpired(t *testing.T) {
	lic := &License{ExpiryDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	if !lic.Expired(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected license to be expired")
	}
	if lic.Expired(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected license to not be expired")
	}
}

func TestCheckCapacity(t *testing.T) {
	lic := &License{CPUMhzLimit: 1000}

	if err := lic.CheckCapacity(900, 50); err != nil {
		t.Errorf("expected capacity to be available, got %v", err)
	}
	if err := lic.CheckCapacity(900, 500); err == nil {
		t.Fatal("expected ErrExhausted for 900+500 > 1000")
	}
}

func TestLoadPublicKey(t *testing.T) {
	_, pub := generateKeyPair(t)
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	parsed, err := LoadPublicKey(pemBytes)
	if err != nil {
		t.Fatalf("LoadPublicKey: %v", err)
	}
	if parsed.N.Cmp(pub.N) != 0 {
		t.Error("parsed public key modulus does not match original")
	}
}

func TestLoadPublicKey_InvalidPEM(t *testing.T) {
	if _, err := LoadPublicKey([]byte("not pem data")); err == nil {
		t.Fatal("expected error for invalid PEM, got nil")
	}
}
