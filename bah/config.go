package bah

import (
	"fmt"

	"github.com/alapierre/bahsig/xmlsig"
)

const (
	HeaderTag    = "AppHdr"
	DocumentTag  = "Document"
	SignatureTag = "Sgntr"

	// HeaderNamespace is the ISO 20022 business application header namespace.
	HeaderNamespace = "urn:iso:std:iso:20022:tech:xsd:head.001.001.01"
)

// Schema names the message elements. Header and document are matched by
// local name in any namespace. The signature placeholder is created in
// SignatureNamespace with SignaturePrefix; an empty namespace means the
// header's own namespace and prefix.
type Schema struct {
	HeaderTag          string `mapstructure:"header_tag"`
	DocumentTag        string `mapstructure:"document_tag"`
	SignatureTag       string `mapstructure:"signature_tag"`
	SignaturePrefix    string `mapstructure:"signature_prefix"`
	SignatureNamespace string `mapstructure:"signature_namespace"`
}

func DefaultSchema() Schema {
	return Schema{
		HeaderTag:    HeaderTag,
		DocumentTag:  DocumentTag,
		SignatureTag: SignatureTag,
	}
}

// ReferenceConfig selects the digest method and canonicalization transform of one reference.
type ReferenceConfig struct {
	DigestMethod xmlsig.AlgorithmID `mapstructure:"digest_method"`
	Transform    xmlsig.AlgorithmID `mapstructure:"transform"`
}

// Config fully determines the cryptographic shape of a signature.
type Config struct {
	SignatureMethod        xmlsig.AlgorithmID `mapstructure:"signature_method"`
	CanonicalizationMethod xmlsig.AlgorithmID `mapstructure:"canonicalization_method"`
	EnvelopedTransform     xmlsig.AlgorithmID `mapstructure:"enveloped_transform"`

	Header   ReferenceConfig `mapstructure:"header"`
	Document ReferenceConfig `mapstructure:"document"`
	KeyInfo  ReferenceConfig `mapstructure:"key_info"`

	// Prefix is the namespace prefix of the ds:Signature element tree.
	Prefix string `mapstructure:"prefix"`

	// IncludeIssuerSerial adds X509IssuerSerial next to X509SKI in KeyInfo.
	IncludeIssuerSerial bool `mapstructure:"include_issuer_serial"`

	Schema Schema `mapstructure:"schema"`
}

func DefaultConfig() Config {
	ref := ReferenceConfig{
		DigestMethod: xmlsig.SHA256,
		Transform:    xmlsig.ExclusiveC14N,
	}
	return Config{
		SignatureMethod:        xmlsig.RSASHA256,
		CanonicalizationMethod: xmlsig.ExclusiveC14N,
		EnvelopedTransform:     xmlsig.EnvelopedSignature,
		Header:                 ref,
		Document:               ref,
		KeyInfo:                ref,
		Prefix:                 xmlsig.DefaultPrefix,
		Schema:                 DefaultSchema(),
	}
}

// Validate reports the first unsupported or missing setting.
func (c Config) Validate() error {
	if !xmlsig.IsSignatureMethod(c.SignatureMethod) {
		return fmt.Errorf("%w: signature method %q", ErrInvalidConfig, c.SignatureMethod)
	}
	if !xmlsig.IsCanonicalization(c.CanonicalizationMethod) {
		return fmt.Errorf("%w: canonicalization method %q", ErrInvalidConfig, c.CanonicalizationMethod)
	}
	if c.EnvelopedTransform != xmlsig.EnvelopedSignature {
		return fmt.Errorf("%w: enveloped transform %q", ErrInvalidConfig, c.EnvelopedTransform)
	}

	refs := map[string]ReferenceConfig{"header": c.Header, "document": c.Document, "key info": c.KeyInfo}
	for name, ref := range refs {
		if !xmlsig.IsDigest(ref.DigestMethod) {
			return fmt.Errorf("%w: %s digest method %q", ErrInvalidConfig, name, ref.DigestMethod)
		}
		if !xmlsig.IsCanonicalization(ref.Transform) {
			return fmt.Errorf("%w: %s transform %q", ErrInvalidConfig, name, ref.Transform)
		}
	}

	if c.Prefix == "" {
		return fmt.Errorf("%w: empty signature prefix", ErrInvalidConfig)
	}
	return c.Schema.Validate()
}

func (s Schema) Validate() error {
	if s.HeaderTag == "" || s.DocumentTag == "" || s.SignatureTag == "" {
		return fmt.Errorf("%w: schema element names must be set", ErrInvalidConfig)
	}
	if s.HeaderTag == s.DocumentTag {
		return fmt.Errorf("%w: header and document share the name %q", ErrInvalidConfig, s.HeaderTag)
	}
	return nil
}
