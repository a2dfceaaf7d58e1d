package xmlsig

import (
	"errors"
)

var (
	ErrDigestMismatch       = errors.New("reference digest mismatch")
	ErrSignatureInvalid     = errors.New("signature value invalid")
	ErrMalformedSignature   = errors.New("malformed signature")
	ErrUnresolvedReference  = errors.New("reference cannot be resolved")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)

type AlgorithmID string

func (id AlgorithmID) String() string {
	return string(id)
}

// Transform is one step of a reference's transform chain. PrefixList is only
// meaningful for exclusive canonicalization.
type Transform struct {
	Algorithm  AlgorithmID
	PrefixList string
}

// Reference is one covered-content entry of SignedInfo.
//
// A nil URI means the attribute is absent, which is distinct from URI="".
// When Content is set the engine digests those octets (after the transform
// chain) instead of dereferencing the URI.
type Reference struct {
	URI             *string
	Transforms      []Transform
	DigestAlgorithm AlgorithmID
	DigestValue     []byte
	Content         []byte
}

// NewReference builds a reference with the given URI, digest method and transforms.
func NewReference(uri *string, digest AlgorithmID, transforms ...Transform) *Reference {
	return &Reference{
		URI:             uri,
		Transforms:      transforms,
		DigestAlgorithm: digest,
	}
}

// URI returns a pointer to uri, for use with NewReference.
func URI(uri string) *string {
	return &uri
}

// SetContent binds the reference to pre-resolved octets.
func (r *Reference) SetContent(content []byte) *Reference {
	r.Content = content
	return r
}

// HasURI reports whether the reference carries a URI attribute.
func (r *Reference) HasURI() bool {
	return r.URI != nil
}

func (r *Reference) String() string {
	if r.URI == nil {
		return "<no URI>"
	}
	return `"` + *r.URI + `"`
}
