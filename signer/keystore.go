package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/youmark/pkcs8"
)

var (
	ErrKeyMismatch        = errors.New("private key does not match certificate")
	ErrPassphraseRequired = errors.New("private key is encrypted and no passphrase was given")
)

type X509KeyStoreSigner struct {
	privateKey crypto.Signer
	chain      []*x509.Certificate
}

// NewX509KeyStoreSigner loads an unencrypted PEM private key and a PEM certificate chain.
func NewX509KeyStoreSigner(privateKeyPath string, certificatePath string) (Signer, error) {
	return NewX509KeyStoreSignerWithPassphrase(privateKeyPath, certificatePath, nil)
}

// NewX509KeyStoreSignerWithPassphrase is NewX509KeyStoreSigner for keys that
// may be stored as encrypted PKCS#8.
func NewX509KeyStoreSignerWithPassphrase(privateKeyPath string, certificatePath string, passphrase []byte) (Signer, error) {
	privateKey, err := loadPrivateKey(privateKeyPath, passphrase)
	if err != nil {
		return nil, err
	}

	chain, err := LoadCertificates(certificatePath)
	if err != nil {
		return nil, err
	}

	return NewKeyPairSigner(privateKey, chain...)
}

// NewKeyPairSigner wraps an in-memory key and its certificate chain, leaf first.
func NewKeyPairSigner(privateKey crypto.Signer, chain ...*x509.Certificate) (Signer, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}

	pub, ok := privateKey.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(chain[0].PublicKey) {
		return nil, ErrKeyMismatch
	}

	return &X509KeyStoreSigner{privateKey, chain}, nil
}

func (x *X509KeyStoreSigner) SignBytes(message []byte) ([]byte, error) {

	hash := crypto.SHA256.New()
	hash.Write(message)
	hashedData := hash.Sum(nil)

	return x.Sign(rand.Reader, hashedData, crypto.SHA256)
}

func (x *X509KeyStoreSigner) SignString(message string) ([]byte, error) {
	return x.SignBytes([]byte(message))
}

func (x *X509KeyStoreSigner) GetCerts() ([][]byte, error) {
	certs := make([][]byte, len(x.chain))
	for i, c := range x.chain {
		certs[i] = c.Raw
	}
	return certs, nil
}

func (x *X509KeyStoreSigner) Public() crypto.PublicKey {
	return x.privateKey.Public()
}

func (x *X509KeyStoreSigner) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {

	signature, err := x.privateKey.Sign(rand, digest, opts)
	if err != nil {
		return nil, fmt.Errorf("signing error: %w", err)
	}

	return signature, nil
}

func (x *X509KeyStoreSigner) Close() error {
	return nil
}

func loadPrivateKey(path string, passphrase []byte) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("invalid private key format: %s", path)
	}

	var key any
	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "ENCRYPTED PRIVATE KEY":
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrPassphraseRequired, path)
		}
		key, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported private key block %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	}
	return nil, fmt.Errorf("unsupported private key type %T", key)
}
