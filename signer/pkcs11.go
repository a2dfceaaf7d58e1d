package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/miekg/pkcs11"
	"go.uber.org/zap"
)

type Pkcs11Config struct {
	Pkcs11ModulePath string
	Pin              string
	SlotNumber       uint
	Logger           *zap.Logger
}

// digestInfoPrefix is the DER DigestInfo header prepended to a digest for CKM_RSA_PKCS.
var digestInfoPrefix = map[crypto.Hash][]byte{
	crypto.SHA1:   {0x30, 0x21, 0x30, 0x09, 0x06, 0x05, 0x2b, 0x0e, 0x03, 0x02, 0x1a, 0x05, 0x00, 0x04, 0x14},
	crypto.SHA256: {0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20},
	crypto.SHA384: {0x30, 0x41, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x02, 0x05, 0x00, 0x04, 0x30},
	crypto.SHA512: {0x30, 0x51, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01, 0x65, 0x03, 0x04, 0x02, 0x03, 0x05, 0x00, 0x04, 0x40},
}

type pkcs11signer struct {
	config     Pkcs11Config
	log        *zap.Logger
	pkcs       *pkcs11.Ctx
	session    *pkcs11.SessionHandle
	publicKey  crypto.PublicKey
	privateKey *pkcs11.ObjectHandle
	certChain  [][]byte
}

func NewPkcs11Signer(config Pkcs11Config) (Signer, error) {
	ctx := pkcs11.New(config.Pkcs11ModulePath)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load pkcs11 module %s", config.Pkcs11ModulePath)
	}
	if err := ctx.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize pkcs11: %v", err)
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	sig := &pkcs11signer{
		config: config,
		log:    log,
		pkcs:   ctx,
	}

	if err := sig.cardInit(); err != nil {
		_ = sig.Close()
		return nil, err
	}

	if err := sig.findSigningKeys(); err != nil {
		_ = sig.Close()
		return nil, fmt.Errorf("failed to find signing keys: %v", err)
	}

	return sig, nil
}

// SignBytes signs the given message using the private key and returns the signature or an error if signing fails.
// The token hashes the message itself (CKM_SHA256_RSA_PKCS).
func (s *pkcs11signer) SignBytes(message []byte) ([]byte, error) {
	return s.sign(pkcs11.CKM_SHA256_RSA_PKCS, message)
}

// SignString converts the input string to bytes and signs it using SignBytes, returning the signature or an error.
func (s *pkcs11signer) SignString(message string) ([]byte, error) {
	return s.SignBytes([]byte(message))
}

func (s *pkcs11signer) GetCerts() ([][]byte, error) {
	return s.certChain, nil
}

// sign signs the given data with mechanism using the PKCS#11 private key and returns the resulting signature or an error.
func (s *pkcs11signer) sign(mechanism uint, data []byte) ([]byte, error) {

	err := s.pkcs.SignInit(*s.session, []*pkcs11.Mechanism{
		pkcs11.NewMechanism(mechanism, nil),
	}, *s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing: %v", err)
	}

	signature, err := s.pkcs.Sign(*s.session, data)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %v", err)
	}
	return signature, nil
}

func (s *pkcs11signer) Public() crypto.PublicKey {
	return s.publicKey
}

// Sign signs an already computed digest. The DigestInfo is built here and passed to the token as raw CKM_RSA_PKCS input.
func (s *pkcs11signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) (signature []byte, err error) {
	prefix, ok := digestInfoPrefix[opts.HashFunc()]
	if !ok {
		return nil, fmt.Errorf("unsupported hash %v", opts.HashFunc())
	}
	if len(digest) != opts.HashFunc().Size() {
		return nil, fmt.Errorf("digest length %d does not match %v", len(digest), opts.HashFunc())
	}
	return s.sign(pkcs11.CKM_RSA_PKCS, append(append([]byte{}, prefix...), digest...))
}

func (s *pkcs11signer) Close() error {

	var errs []error

	if s.pkcs != nil {
		if s.session != nil {
			if err := s.pkcs.CloseSession(*s.session); err != nil {
				errs = append(errs, err)
			}
		}

		if err := s.pkcs.Finalize(); err != nil {
			errs = append(errs, err)
		}
		s.pkcs.Destroy()
		s.pkcs = nil
	}
	return errors.Join(errs...)
}

func (s *pkcs11signer) cardInit() error {

	slots, err := s.pkcs.GetSlotList(true)
	if err != nil {
		return fmt.Errorf("failed to get slot list: %v", err)
	}
	if len(slots) <= int(s.config.SlotNumber) {
		return fmt.Errorf("invalid slot number")
	}

	session, err := s.pkcs.OpenSession(slots[s.config.SlotNumber], pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		return fmt.Errorf("failed to open session: %v", err)
	}

	s.session = &session

	if err := s.pkcs.Login(*s.session, pkcs11.CKU_USER, s.config.Pin); err != nil {
		return fmt.Errorf("failed to login: %v", err)
	}
	return nil
}

func (s *pkcs11signer) findObject(class uint) (pkcs11.ObjectHandle, error) {
	session := *s.session

	if err := s.pkcs.FindObjectsInit(session, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, class),
	}); err != nil {
		return 0, fmt.Errorf("failed to initialize object search: %v", err)
	}

	objects, _, err := s.pkcs.FindObjects(session, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to find objects: %v", err)
	}

	if err := s.pkcs.FindObjectsFinal(session); err != nil {
		s.log.Warn("FindObjectsFinal operation failed", zap.Error(err))
	}

	if len(objects) == 0 {
		return 0, fmt.Errorf("no object of class %d found", class)
	}
	return objects[0], nil
}

func (s *pkcs11signer) findSigningKeys() error {

	session := *s.session

	privateKey, err := s.findObject(pkcs11.CKO_PRIVATE_KEY)
	if err != nil {
		return fmt.Errorf("no signing key found: %v", err)
	}
	s.privateKey = &privateKey

	// Znajdź odpowiadający klucz publiczny
	publicKey, err := s.findObject(pkcs11.CKO_PUBLIC_KEY)
	if err != nil {
		return fmt.Errorf("no public key found: %v", err)
	}

	pubKeyAttrs, err := s.pkcs.GetAttributeValue(session, publicKey, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_MODULUS, nil),
		pkcs11.NewAttribute(pkcs11.CKA_PUBLIC_EXPONENT, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to get public key attributes: %v", err)
	}

	modulus := new(big.Int).SetBytes(pubKeyAttrs[0].Value)
	exponent := new(big.Int).SetBytes(pubKeyAttrs[1].Value)
	s.publicKey = &rsa.PublicKey{
		N: modulus,
		E: int(exponent.Int64()),
	}

	// Pobierz certyfikat
	cert, err := s.findObject(pkcs11.CKO_CERTIFICATE)
	if err != nil {
		return fmt.Errorf("no certificate found: %v", err)
	}

	certAttrs, err := s.pkcs.GetAttributeValue(session, cert, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_VALUE, nil),
	})
	if err != nil {
		return fmt.Errorf("failed to get certificate attributes: %v", err)
	}

	parsedCert, err := x509.ParseCertificate(certAttrs[0].Value)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %v", err)
	}

	s.certChain = [][]byte{parsedCert.Raw}
	s.log.Debug("pkcs11 signing key loaded",
		zap.String("subject", parsedCert.Subject.String()),
		zap.Uint("slot", s.config.SlotNumber),
	)

	return nil
}
