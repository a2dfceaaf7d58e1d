package xmlsig

import (
	"crypto"
	"encoding/base64"
	"fmt"

	"github.com/beevik/etree"
)

// Params fixes the signature-level algorithms and the optional KeyInfo
// element embedded in the signature.
type Params struct {
	Prefix                 string
	CanonicalizationMethod AlgorithmID
	SignatureMethod        AlgorithmID
	KeyInfo                *etree.Element
}

// Signature is an XML-DSig signature, either under construction or loaded
// from a document.
type Signature struct {
	Params
	References []*Reference
	Value      []byte

	element *etree.Element
}

// NewSignature constructs an unsigned signature over refs.
func NewSignature(params Params, refs ...*Reference) *Signature {
	if params.Prefix == "" {
		params.Prefix = DefaultPrefix
	}
	return &Signature{
		Params:     params,
		References: refs,
	}
}

// Element returns the ds:Signature element once the signature has been computed or loaded.
func (s *Signature) Element() *etree.Element {
	return s.element
}

// Compute builds the ds:Signature element as the last child of into, digests
// every reference and signs SignedInfo with key. The element is placed before
// any digest is taken so that fragment references and canonicalization see
// the same namespace context a verifier will. On error into is left as it was.
func (s *Signature) Compute(into *etree.Element, key crypto.Signer) (*etree.Element, error) {
	if !IsCanonicalization(s.CanonicalizationMethod) {
		return nil, fmt.Errorf("%w: canonicalization %s", ErrUnsupportedAlgorithm, s.CanonicalizationMethod)
	}
	if _, err := lookupMethod(s.SignatureMethod); err != nil {
		return nil, err
	}

	sig, signedInfo, digestValues := s.build()
	into.AddChild(sig)

	value, err := s.compute(signedInfo, digestValues, key)
	if err != nil {
		into.RemoveChild(sig)
		return nil, err
	}

	sv := etree.NewElement(s.tag(SignatureValueTag))
	sv.SetText(base64.StdEncoding.EncodeToString(value))
	sig.InsertChildAt(signedInfo.Index()+1, sv)

	s.Value = value
	s.element = sig
	return sig, nil
}

func (s *Signature) compute(signedInfo *etree.Element, digestValues []*etree.Element, key crypto.Signer) ([]byte, error) {
	for i, ref := range s.References {
		d, err := ref.digest(signedInfo)
		if err != nil {
			return nil, err
		}
		ref.DigestValue = d
		digestValues[i].SetText(base64.StdEncoding.EncodeToString(d))
	}

	canonical, err := Canonicalize(signedInfo, Transform{Algorithm: s.CanonicalizationMethod})
	if err != nil {
		return nil, fmt.Errorf("canonicalize SignedInfo: %w", err)
	}
	return signDigest(key, s.SignatureMethod, canonical)
}

func (s *Signature) tag(local string) string {
	return s.Prefix + ":" + local
}

// build assembles the unsigned element tree and returns it together with
// SignedInfo and the DigestValue element of each reference.
func (s *Signature) build() (*etree.Element, *etree.Element, []*etree.Element) {
	sig := etree.NewElement(s.tag(SignatureTag))
	sig.CreateAttr("xmlns:"+s.Prefix, Namespace)

	signedInfo := sig.CreateElement(s.tag(SignedInfoTag))
	signedInfo.CreateElement(s.tag(CanonicalizationMethodTag)).
		CreateAttr(AlgorithmAttr, s.CanonicalizationMethod.String())
	signedInfo.CreateElement(s.tag(SignatureMethodTag)).
		CreateAttr(AlgorithmAttr, s.SignatureMethod.String())

	digestValues := make([]*etree.Element, len(s.References))
	for i, ref := range s.References {
		reference := signedInfo.CreateElement(s.tag(ReferenceTag))
		if ref.URI != nil {
			reference.CreateAttr(URIAttr, *ref.URI)
		}
		if len(ref.Transforms) > 0 {
			transforms := reference.CreateElement(s.tag(TransformsTag))
			for _, t := range ref.Transforms {
				transform := transforms.CreateElement(s.tag(TransformTag))
				transform.CreateAttr(AlgorithmAttr, t.Algorithm.String())
				if t.PrefixList != "" {
					inclusive := transform.CreateElement("ec:" + InclusiveNamespacesTag)
					inclusive.CreateAttr("xmlns:ec", string(ExclusiveC14N))
					inclusive.CreateAttr(PrefixListAttr, t.PrefixList)
				}
			}
		}
		reference.CreateElement(s.tag(DigestMethodTag)).
			CreateAttr(AlgorithmAttr, ref.DigestAlgorithm.String())
		digestValues[i] = reference.CreateElement(s.tag(DigestValueTag))
	}

	if s.KeyInfo != nil {
		sig.AddChild(s.KeyInfo.Copy())
	}
	return sig, signedInfo, digestValues
}
