// Package testfixtures generates signing keys and certificates for tests.
package testfixtures

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// KeyPair is a private key with a self-signed certificate.
type KeyPair struct {
	Key         crypto.Signer
	Certificate *x509.Certificate
}

// RSA generates a 2048 bit RSA key pair whose certificate carries a subject key identifier.
func RSA(t testing.TB, cn string) *KeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return selfSigned(t, cn, key, true)
}

// ECDSA generates a P-256 key pair whose certificate carries a subject key identifier.
func ECDSA(t testing.TB, cn string) *KeyPair {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ECDSA key: %v", err)
	}
	return selfSigned(t, cn, key, true)
}

// RSAWithoutSKI generates an RSA key pair whose certificate has no subject key identifier.
func RSAWithoutSKI(t testing.TB, cn string) *KeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return selfSigned(t, cn, key, false)
}

func selfSigned(t testing.TB, cn string, key crypto.Signer, withSKI bool) *KeyPair {
	t.Helper()

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("failed to generate serial: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   cn,
			Organization: []string{"Test Bank"},
		},
		NotBefore:   time.Now().Add(-time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if withSKI {
		pub, err := x509.MarshalPKIXPublicKey(key.Public())
		if err != nil {
			t.Fatalf("failed to marshal public key: %v", err)
		}
		sum := sha1.Sum(pub)
		template.SubjectKeyId = sum[:]
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return &KeyPair{Key: key, Certificate: cert}
}

// WriteCertificate stores the certificate as PEM below dir and returns its path.
func (k *KeyPair) WriteCertificate(t testing.TB, dir string) string {
	t.Helper()
	return writePEM(t, filepath.Join(dir, "certificate.pem"), &pem.Block{Type: "CERTIFICATE", Bytes: k.Certificate.Raw})
}

// WritePrivateKey stores the key as unencrypted PKCS#8 PEM below dir and returns its path.
func (k *KeyPair) WritePrivateKey(t testing.TB, dir string) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(k.Key)
	if err != nil {
		t.Fatalf("failed to marshal private key: %v", err)
	}
	return writePEM(t, filepath.Join(dir, "private_key.pem"), &pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// WritePKCS12 stores the key, its certificate and the issuing certificates
// as a password protected .p12 below dir and returns its path.
func (k *KeyPair) WritePKCS12(t testing.TB, dir, password string, issuers ...*x509.Certificate) string {
	t.Helper()
	data, err := pkcs12.Modern.Encode(k.Key, k.Certificate, issuers, password)
	if err != nil {
		t.Fatalf("failed to encode pkcs12: %v", err)
	}
	path := filepath.Join(dir, "keystore.p12")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WritePEM stores an arbitrary PEM block at path.
func WritePEM(t testing.TB, path string, block *pem.Block) string {
	t.Helper()
	return writePEM(t, path, block)
}

func writePEM(t testing.TB, path string, block *pem.Block) string {
	t.Helper()
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
