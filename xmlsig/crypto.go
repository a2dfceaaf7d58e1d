package xmlsig

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

func lookupMethod(id AlgorithmID) (signatureMethod, error) {
	m, ok := signatureMethods[id]
	if !ok {
		return signatureMethod{}, fmt.Errorf("%w: signature method %s", ErrUnsupportedAlgorithm, id)
	}
	return m, nil
}

// signDigest produces an XML-DSig signature value over canonical SignedInfo.
// ECDSA signatures are converted from ASN.1 DER to the fixed-size r||s form.
func signDigest(key crypto.Signer, method AlgorithmID, signedInfo []byte) ([]byte, error) {
	m, err := lookupMethod(method)
	if err != nil {
		return nil, err
	}

	h := m.hash.New()
	h.Write(signedInfo)
	digest := h.Sum(nil)

	switch pub := key.Public().(type) {
	case *rsa.PublicKey:
		if m.kind != rsaKey {
			return nil, fmt.Errorf("%w: %s with an RSA key", ErrUnsupportedAlgorithm, method)
		}
		return key.Sign(rand.Reader, digest, m.hash)
	case *ecdsa.PublicKey:
		if m.kind != ecdsaKey {
			return nil, fmt.Errorf("%w: %s with an ECDSA key", ErrUnsupportedAlgorithm, method)
		}
		der, err := key.Sign(rand.Reader, digest, m.hash)
		if err != nil {
			return nil, err
		}
		return ecdsaRaw(der, curveSize(pub))
	default:
		return nil, fmt.Errorf("%w: key type %T", ErrUnsupportedAlgorithm, pub)
	}
}

func verifyDigest(pub crypto.PublicKey, method AlgorithmID, signedInfo, value []byte) error {
	m, err := lookupMethod(method)
	if err != nil {
		return err
	}

	h := m.hash.New()
	h.Write(signedInfo)
	digest := h.Sum(nil)

	switch key := pub.(type) {
	case *rsa.PublicKey:
		if m.kind != rsaKey {
			return fmt.Errorf("%w: %s does not match an RSA key", ErrSignatureInvalid, method)
		}
		if err := rsa.VerifyPKCS1v15(key, m.hash, digest, value); err != nil {
			return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		return nil
	case *ecdsa.PublicKey:
		if m.kind != ecdsaKey {
			return fmt.Errorf("%w: %s does not match an ECDSA key", ErrSignatureInvalid, method)
		}
		size := curveSize(key)
		if len(value) != 2*size {
			return fmt.Errorf("%w: ECDSA value is %d bytes, want %d", ErrSignatureInvalid, len(value), 2*size)
		}
		r := new(big.Int).SetBytes(value[:size])
		s := new(big.Int).SetBytes(value[size:])
		if !ecdsa.Verify(key, digest, r, s) {
			return ErrSignatureInvalid
		}
		return nil
	}
	return fmt.Errorf("%w: key type %T", ErrUnsupportedAlgorithm, pub)
}

func curveSize(pub *ecdsa.PublicKey) int {
	return (pub.Curve.Params().BitSize + 7) / 8
}

func ecdsaRaw(der []byte, size int) ([]byte, error) {
	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, cbasn1.SEQUENCE) || !input.Empty() ||
		!inner.ReadASN1Integer(r) || !inner.ReadASN1Integer(s) || !inner.Empty() {
		return nil, fmt.Errorf("invalid ECDSA signature encoding")
	}

	out := make([]byte, 2*size)
	r.FillBytes(out[:size])
	s.FillBytes(out[size:])
	return out, nil
}
