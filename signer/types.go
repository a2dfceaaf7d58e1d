package signer

import (
	"crypto"
	"crypto/x509"
	"fmt"
)

// Signer is signing key material: a crypto.Signer together with the
// certificate chain identifying it. bah.Sign accepts any Signer.
type Signer interface {
	crypto.Signer

	// GetCerts returns the DER encoded certificate chain, leaf first.
	GetCerts() ([][]byte, error)

	// SignBytes hashes message with SHA-256 and signs the digest.
	SignBytes(message []byte) ([]byte, error)

	SignString(message string) ([]byte, error)

	// Close releases token sessions. It is a no-op for in-memory keys.
	Close() error
}

// Leaf parses the first certificate of the signer's chain.
func Leaf(s Signer) (*x509.Certificate, error) {
	certs, err := s.GetCerts()
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}
	return x509.ParseCertificate(certs[0])
}
