package xmlsig

import (
	"bytes"
	"crypto"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Load parses a ds:Signature element into a Signature ready for Verify.
// Reference contents may be rebound with Reference.SetContent before verifying.
func Load(el *etree.Element) (*Signature, error) {
	if el == nil || !isDsig(el, SignatureTag) {
		return nil, fmt.Errorf("%w: not a ds:Signature element", ErrMalformedSignature)
	}

	signedInfo, err := child(el, SignedInfoTag)
	if err != nil {
		return nil, err
	}

	s := &Signature{
		Params:  Params{Prefix: el.Space},
		element: el,
	}

	c14n, err := child(signedInfo, CanonicalizationMethodTag)
	if err != nil {
		return nil, err
	}
	s.CanonicalizationMethod = AlgorithmID(c14n.SelectAttrValue(AlgorithmAttr, ""))

	method, err := child(signedInfo, SignatureMethodTag)
	if err != nil {
		return nil, err
	}
	s.SignatureMethod = AlgorithmID(method.SelectAttrValue(AlgorithmAttr, ""))

	for _, c := range signedInfo.ChildElements() {
		if !isDsig(c, ReferenceTag) {
			continue
		}
		ref, err := loadReference(c)
		if err != nil {
			return nil, err
		}
		s.References = append(s.References, ref)
	}
	if len(s.References) == 0 {
		return nil, fmt.Errorf("%w: SignedInfo has no references", ErrMalformedSignature)
	}

	value, err := child(el, SignatureValueTag)
	if err != nil {
		return nil, err
	}
	if s.Value, err = decodeBase64(value.Text()); err != nil {
		return nil, fmt.Errorf("%w: SignatureValue: %v", ErrMalformedSignature, err)
	}

	s.KeyInfo = optionalChild(el, KeyInfoTag)
	return s, nil
}

func loadReference(el *etree.Element) (*Reference, error) {
	ref := &Reference{}
	if a := el.SelectAttr(URIAttr); a != nil {
		ref.URI = URI(a.Value)
	}

	if transforms := optionalChild(el, TransformsTag); transforms != nil {
		for _, t := range transforms.ChildElements() {
			if !isDsig(t, TransformTag) {
				continue
			}
			tr := Transform{Algorithm: AlgorithmID(t.SelectAttrValue(AlgorithmAttr, ""))}
			for _, c := range t.ChildElements() {
				if c.Tag == InclusiveNamespacesTag {
					tr.PrefixList = c.SelectAttrValue(PrefixListAttr, "")
				}
			}
			ref.Transforms = append(ref.Transforms, tr)
		}
	}

	method, err := child(el, DigestMethodTag)
	if err != nil {
		return nil, err
	}
	ref.DigestAlgorithm = AlgorithmID(method.SelectAttrValue(AlgorithmAttr, ""))

	value, err := child(el, DigestValueTag)
	if err != nil {
		return nil, err
	}
	if ref.DigestValue, err = decodeBase64(value.Text()); err != nil {
		return nil, fmt.Errorf("%w: DigestValue of reference %s: %v", ErrMalformedSignature, ref, err)
	}
	return ref, nil
}

// Verify recomputes every reference digest and checks the signature value
// against pub. It returns an error wrapping ErrDigestMismatch or
// ErrSignatureInvalid when the signature does not hold.
func (s *Signature) Verify(pub crypto.PublicKey) error {
	if s.element == nil {
		return fmt.Errorf("%w: signature was not loaded or computed", ErrMalformedSignature)
	}
	signedInfo, err := child(s.element, SignedInfoTag)
	if err != nil {
		return err
	}

	for _, ref := range s.References {
		d, err := ref.digest(s.element)
		if err != nil {
			return err
		}
		if !bytes.Equal(d, ref.DigestValue) {
			return fmt.Errorf("%w: reference %s", ErrDigestMismatch, ref)
		}
	}

	if !IsCanonicalization(s.CanonicalizationMethod) {
		return fmt.Errorf("%w: canonicalization %s", ErrUnsupportedAlgorithm, s.CanonicalizationMethod)
	}
	canonical, err := Canonicalize(signedInfo, Transform{Algorithm: s.CanonicalizationMethod})
	if err != nil {
		return fmt.Errorf("canonicalize SignedInfo: %w", err)
	}
	return verifyDigest(pub, s.SignatureMethod, canonical, s.Value)
}

func child(el *etree.Element, tag string) (*etree.Element, error) {
	if c := optionalChild(el, tag); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s has no %s", ErrMalformedSignature, el.Tag, tag)
}

func optionalChild(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if isDsig(c, tag) {
			return c
		}
	}
	return nil
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s), ""))
}
