package bah

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/alapierre/bahsig/xmlsig"
)

var oidSubjectKeyID = asn1.ObjectIdentifier{2, 5, 29, 14}

// subjectKeyID returns the key identifier carried in the certificate's
// subject key identifier extension, without its OCTET STRING header.
func subjectKeyID(cert *x509.Certificate) ([]byte, error) {
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oidSubjectKeyID) {
			continue
		}
		var ski cryptobyte.String
		value := cryptobyte.String(ext.Value)
		if !value.ReadASN1(&ski, cbasn1.OCTET_STRING) || !value.Empty() || len(ski) == 0 {
			return nil, fmt.Errorf("%w: malformed extension", ErrNoSubjectKeyID)
		}
		return []byte(ski), nil
	}
	return nil, ErrNoSubjectKeyID
}

// keyInfo builds the KeyInfo element referencing cert by subject key
// identifier only; the certificate itself is never embedded.
func keyInfo(cfg Config, cert *x509.Certificate, id string) (*etree.Element, error) {
	ski, err := subjectKeyID(cert)
	if err != nil {
		return nil, err
	}

	tag := func(local string) string {
		return cfg.Prefix + ":" + local
	}

	ki := etree.NewElement(tag(xmlsig.KeyInfoTag))
	ki.CreateAttr(xmlsig.IdAttr, id)
	data := ki.CreateElement(tag(xmlsig.X509DataTag))

	if cfg.IncludeIssuerSerial {
		issuerSerial := data.CreateElement(tag(xmlsig.X509IssuerSerialTag))
		issuerSerial.CreateElement(tag(xmlsig.X509IssuerNameTag)).SetText(cert.Issuer.String())
		issuerSerial.CreateElement(tag(xmlsig.X509SerialNumberTag)).SetText(cert.SerialNumber.String())
	}

	data.CreateElement(tag(xmlsig.X509SKITag)).SetText(base64.StdEncoding.EncodeToString(ski))
	return ki, nil
}

// KeyIdentifier returns the subject key identifier advertised in the
// message signature's KeyInfo, so the caller can select a verification key.
// The header is located with the default schema.
func KeyIdentifier(doc *etree.Document) ([]byte, error) {
	return keyIdentifier(doc, DefaultSchema())
}

// KeyIdentifier is like the package level KeyIdentifier but locates the
// header with the verifier's schema.
func (v *Verifier) KeyIdentifier(doc *etree.Document) ([]byte, error) {
	return keyIdentifier(doc, v.schema)
}

func keyIdentifier(doc *etree.Document, schema Schema) ([]byte, error) {
	el, err := headerSignature(doc, schema)
	if err != nil {
		return nil, err
	}

	ski := findAll(el, func(e *etree.Element) bool {
		return e.Tag == xmlsig.X509SKITag && e.NamespaceURI() == xmlsig.Namespace
	})
	if len(ski) != 1 {
		return nil, fmt.Errorf("%w: signature carries %d X509SKI elements", ErrNoSubjectKeyID, len(ski))
	}

	id, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(ski[0].Text()), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSubjectKeyID, err)
	}
	return id, nil
}

// SelectCertificate returns the certificate whose subject key identifier equals ski, or nil.
func SelectCertificate(ski []byte, certs []*x509.Certificate) *x509.Certificate {
	for _, cert := range certs {
		if id, err := subjectKeyID(cert); err == nil && bytes.Equal(id, ski) {
			return cert
		}
	}
	return nil
}
