package bah

import (
	"crypto"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/alapierre/bahsig/xmlsig"
)

// Verifier checks signatures produced by Signer.
type Verifier struct {
	schema Schema
	options
}

func NewVerifier(schema Schema, opts ...Option) (*Verifier, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Verifier{schema: schema, options: newOptions(opts)}, nil
}

// Verify checks doc against pub using the default schema.
func Verify(doc *etree.Document, pub crypto.PublicKey) (bool, error) {
	v := &Verifier{schema: DefaultSchema(), options: newOptions(nil)}
	return v.Verify(doc, pub)
}

// Verify reports whether the message signature is valid for pub. A digest
// mismatch or a bad signature value yields false with a nil error; errors
// are reserved for messages that cannot be checked at all.
//
// The header reference (URI="") and the payload reference (no URI) are bound
// to the serialized header and payload elements before verification, since
// neither URI form designates a single sibling subtree on its own.
func (v *Verifier) Verify(doc *etree.Document, pub crypto.PublicKey) (bool, error) {
	if doc.Root() == nil {
		return false, ErrNotSigned
	}
	header, document, err := messageParts(doc, v.schema)
	if err != nil {
		return false, err
	}
	el, err := findSignature(header)
	if err != nil {
		return false, err
	}
	sig, err := xmlsig.Load(el)
	if err != nil {
		return false, err
	}
	if err := checkLayout(sig); err != nil {
		return false, err
	}

	for _, ref := range sig.References {
		var target *etree.Element
		switch {
		case !ref.HasURI():
			target = document
		case *ref.URI == "":
			target = header
		default:
			continue
		}

		content, err := xmlsig.Octets(target)
		if err != nil {
			return false, fmt.Errorf("serialize %s: %w", target.Tag, err)
		}
		ref.SetContent(content)
	}

	err = sig.Verify(pub)
	switch {
	case err == nil:
		v.log.Debug("signature valid", zap.String("signature_method", sig.SignatureMethod.String()))
		return true, nil
	case errors.Is(err, xmlsig.ErrDigestMismatch), errors.Is(err, xmlsig.ErrSignatureInvalid):
		v.log.Debug("signature invalid", zap.Error(err))
		return false, nil
	}
	return false, err
}

// checkLayout requires exactly the three references a Signer produces: one
// without URI, one with URI="" and one pointing at the signature's KeyInfo.
func checkLayout(sig *xmlsig.Signature) error {
	if len(sig.References) != 3 {
		return fmt.Errorf("%w: %d references, want 3", ErrReferenceLayout, len(sig.References))
	}

	var absent, empty, fragment int
	for _, ref := range sig.References {
		switch {
		case !ref.HasURI():
			absent++
		case *ref.URI == "":
			empty++
		case strings.HasPrefix(*ref.URI, "#"):
			if sig.KeyInfo == nil || sig.KeyInfo.SelectAttrValue(xmlsig.IdAttr, "") != (*ref.URI)[1:] {
				return fmt.Errorf("%w: reference %s does not designate KeyInfo", ErrReferenceLayout, ref)
			}
			fragment++
		default:
			return fmt.Errorf("%w: reference %s", ErrReferenceLayout, ref)
		}
	}

	if absent != 1 || empty != 1 || fragment != 1 {
		return fmt.Errorf("%w: want one payload, one header and one KeyInfo reference", ErrReferenceLayout)
	}
	return nil
}
