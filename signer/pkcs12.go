package signer

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// NewPKCS12Signer loads the key and certificate chain of a .p12/.pfx keystore.
// An empty password is tried as is; a wrong one yields ErrPassphraseRequired.
func NewPKCS12Signer(path string, password string) (Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	key, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, fmt.Errorf("%w: %s", ErrPassphraseRequired, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode pkcs12 %s: %w", path, err)
	}

	privateKey, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
	return NewKeyPairSigner(privateKey, leafFirst(privateKey, append([]*x509.Certificate{cert}, caCerts...))...)
}

// leafFirst moves the certificate of key to the front of chain. Keystores
// written by some tools list the issuing certificates before the leaf.
func leafFirst(key crypto.Signer, chain []*x509.Certificate) []*x509.Certificate {
	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return chain
	}
	for i, cert := range chain {
		if cert != nil && pub.Equal(cert.PublicKey) {
			ordered := make([]*x509.Certificate, 0, len(chain))
			ordered = append(ordered, cert)
			ordered = append(ordered, chain[:i]...)
			return append(ordered, chain[i+1:]...)
		}
	}
	return chain
}
