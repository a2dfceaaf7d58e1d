package bah

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alapierre/bahsig/xmlsig"
)

// KeyMaterial is a signing key together with its certificate chain, leaf
// certificate first. signer.Signer implementations satisfy it.
type KeyMaterial interface {
	crypto.Signer
	GetCerts() ([][]byte, error)
}

type options struct {
	log   *zap.Logger
	newID func() string
}

type Option func(*options)

// WithLogger sets the logger used for debug output. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithIDGenerator replaces the KeyInfo identifier generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		log: zap.NewNop(),
		newID: func() string {
			return "id" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Signer embeds XML-DSig signatures into message headers.
// It holds no per-message state and may be shared between goroutines.
type Signer struct {
	cfg Config
	options
}

func NewSigner(cfg Config, opts ...Option) (*Signer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Signer{cfg: cfg, options: newOptions(opts)}, nil
}

// Sign signs doc in place and returns it. The signature is placed inside a
// new placeholder element appended to the header. On error doc is left
// unmodified.
func Sign(doc *etree.Document, cfg Config, key KeyMaterial) (*etree.Document, error) {
	s, err := NewSigner(cfg)
	if err != nil {
		return nil, err
	}
	return s.Sign(doc, key)
}

func (s *Signer) Sign(doc *etree.Document, key KeyMaterial) (*etree.Document, error) {
	if root := doc.Root(); root != nil && s.signed(root) {
		return nil, ErrAlreadySigned
	}
	header, document, err := messageParts(doc, s.cfg.Schema)
	if err != nil {
		return nil, err
	}

	cert, err := leafCertificate(key)
	if err != nil {
		return nil, err
	}
	keyInfoID := s.newID()
	ki, err := keyInfo(s.cfg, cert, keyInfoID)
	if err != nil {
		return nil, err
	}

	placeholder := s.placeholder(header)

	headerContent, err := xmlsig.Octets(header)
	if err != nil {
		header.RemoveChild(placeholder)
		return nil, fmt.Errorf("serialize %s: %w", header.Tag, err)
	}
	documentContent, err := xmlsig.Octets(document)
	if err != nil {
		header.RemoveChild(placeholder)
		return nil, fmt.Errorf("serialize %s: %w", document.Tag, err)
	}

	sig := xmlsig.NewSignature(xmlsig.Params{
		Prefix:                 s.cfg.Prefix,
		CanonicalizationMethod: s.cfg.CanonicalizationMethod,
		SignatureMethod:        s.cfg.SignatureMethod,
		KeyInfo:                ki,
	},
		HeaderReference(s.cfg, headerContent),
		DocumentReference(s.cfg, documentContent),
		KeyInfoReference(s.cfg, keyInfoID),
	)

	if _, err := sig.Compute(placeholder, key); err != nil {
		header.RemoveChild(placeholder)
		return nil, fmt.Errorf("compute signature: %w", err)
	}

	if ce := s.log.Check(zap.DebugLevel, "message signed"); ce != nil {
		fields := []zap.Field{
			zap.String("key_info_id", keyInfoID),
			zap.String("signature_method", s.cfg.SignatureMethod.String()),
		}
		for i, ref := range sig.References {
			fields = append(fields, zap.String(fmt.Sprintf("reference_%d", i), ref.String()+" "+base64.StdEncoding.EncodeToString(ref.DigestValue)))
		}
		ce.Write(fields...)
	}
	return doc, nil
}

// signed reports whether a header below root already carries a signature
// placeholder or a ds:Signature. Only the header subtree is searched, and a
// placeholder must be in the configured namespace, or in the header's own
// namespace when none is configured.
func (s *Signer) signed(root *etree.Element) bool {
	sc := s.cfg.Schema
	for _, header := range findAll(root, byLocalName(sc.HeaderTag)) {
		space := sc.SignatureNamespace
		if space == "" {
			space = header.NamespaceURI()
		}
		placeholders := findAll(header, func(el *etree.Element) bool {
			return el.Tag == sc.SignatureTag && el.NamespaceURI() == space
		})
		if len(placeholders) > 0 || len(findAll(header, isDsigSignature)) > 0 {
			return true
		}
	}
	return false
}

// placeholder appends the empty signature container to header.
func (s *Signer) placeholder(header *etree.Element) *etree.Element {
	sc := s.cfg.Schema
	if sc.SignatureNamespace == "" {
		el := header.CreateElement(sc.SignatureTag)
		el.Space = header.Space
		return el
	}

	name := sc.SignatureTag
	if sc.SignaturePrefix != "" {
		name = sc.SignaturePrefix + ":" + name
	}
	el := header.CreateElement(name)
	if el.NamespaceURI() != sc.SignatureNamespace {
		if sc.SignaturePrefix == "" {
			el.CreateAttr("xmlns", sc.SignatureNamespace)
		} else {
			el.CreateAttr("xmlns:"+sc.SignaturePrefix, sc.SignatureNamespace)
		}
	}
	return el
}

func leafCertificate(key KeyMaterial) (*x509.Certificate, error) {
	certs, err := key.GetCerts()
	if err != nil {
		return nil, fmt.Errorf("get certificates: %w", err)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}
	cert, err := x509.ParseCertificate(certs[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}
