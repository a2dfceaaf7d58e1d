package xmlsig

import (
	"crypto"
	"strings"

	dsig "github.com/russellhaering/goxmldsig"
)

const (
	// Namespace is the XML-DSig namespace URI.
	Namespace = dsig.Namespace

	// DefaultPrefix is the prefix used for the ds namespace when none is configured.
	DefaultPrefix = "ds"
)

// Tags
const (
	SignatureTag              = dsig.SignatureTag
	SignedInfoTag             = dsig.SignedInfoTag
	CanonicalizationMethodTag = dsig.CanonicalizationMethodTag
	SignatureMethodTag        = dsig.SignatureMethodTag
	ReferenceTag              = dsig.ReferenceTag
	TransformsTag             = dsig.TransformsTag
	TransformTag              = dsig.TransformTag
	DigestMethodTag           = dsig.DigestMethodTag
	DigestValueTag            = dsig.DigestValueTag
	SignatureValueTag         = dsig.SignatureValueTag
	KeyInfoTag                = dsig.KeyInfoTag
	X509DataTag               = dsig.X509DataTag
	X509SKITag                = "X509SKI"
	X509IssuerSerialTag       = "X509IssuerSerial"
	X509IssuerNameTag         = "X509IssuerName"
	X509SerialNumberTag       = "X509SerialNumber"
	InclusiveNamespacesTag    = dsig.InclusiveNamespacesTag
)

const (
	AlgorithmAttr  = dsig.AlgorithmAttr
	URIAttr        = dsig.URIAttr
	IdAttr         = "Id"
	PrefixListAttr = dsig.PrefixListAttr
)

// idAttrs are the attribute names tried when resolving a same-document fragment.
var idAttrs = []string{"Id", "ID", "id"}

// Transforms and canonicalization methods
const (
	EnvelopedSignature        = AlgorithmID(dsig.EnvelopedSignatureAltorithmId)
	ExclusiveC14N             = AlgorithmID(dsig.CanonicalXML10ExclusiveAlgorithmId)
	ExclusiveC14NWithComments = AlgorithmID(dsig.CanonicalXML10ExclusiveWithCommentsAlgorithmId)
	C14N10                    = AlgorithmID(dsig.CanonicalXML10RecAlgorithmId)
	C14N10WithComments        = AlgorithmID(dsig.CanonicalXML10WithCommentsAlgorithmId)
	C14N11                    = AlgorithmID(dsig.CanonicalXML11AlgorithmId)
)

// Digest methods. goxmldsig keeps its digest identifiers unexported.
const (
	SHA1   AlgorithmID = "http://www.w3.org/2000/09/xmldsig#sha1"
	SHA256 AlgorithmID = "http://www.w3.org/2001/04/xmlenc#sha256"
	SHA384 AlgorithmID = "http://www.w3.org/2001/04/xmldsig-more#sha384"
	SHA512 AlgorithmID = "http://www.w3.org/2001/04/xmlenc#sha512"
)

// Signature methods
const (
	RSASHA1     AlgorithmID = dsig.RSASHA1SignatureMethod
	RSASHA256   AlgorithmID = dsig.RSASHA256SignatureMethod
	RSASHA384   AlgorithmID = dsig.RSASHA384SignatureMethod
	RSASHA512   AlgorithmID = dsig.RSASHA512SignatureMethod
	ECDSASHA256 AlgorithmID = dsig.ECDSASHA256SignatureMethod
	ECDSASHA384 AlgorithmID = dsig.ECDSASHA384SignatureMethod
	ECDSASHA512 AlgorithmID = dsig.ECDSASHA512SignatureMethod
)

var digestAlgorithms = map[AlgorithmID]crypto.Hash{
	SHA1:   crypto.SHA1,
	SHA256: crypto.SHA256,
	SHA384: crypto.SHA384,
	SHA512: crypto.SHA512,
}

type keyKind int

const (
	rsaKey keyKind = iota
	ecdsaKey
)

type signatureMethod struct {
	hash crypto.Hash
	kind keyKind
}

var signatureMethods = map[AlgorithmID]signatureMethod{
	RSASHA1:     {crypto.SHA1, rsaKey},
	RSASHA256:   {crypto.SHA256, rsaKey},
	RSASHA384:   {crypto.SHA384, rsaKey},
	RSASHA512:   {crypto.SHA512, rsaKey},
	ECDSASHA256: {crypto.SHA256, ecdsaKey},
	ECDSASHA384: {crypto.SHA384, ecdsaKey},
	ECDSASHA512: {crypto.SHA512, ecdsaKey},
}

// IsCanonicalization reports whether id names a canonicalization algorithm known to the engine.
func IsCanonicalization(id AlgorithmID) bool {
	switch id {
	case ExclusiveC14N, ExclusiveC14NWithComments, C14N10, C14N10WithComments, C14N11:
		return true
	}
	return false
}

// IsDigest reports whether id names a supported digest method.
func IsDigest(id AlgorithmID) bool {
	_, ok := digestAlgorithms[id]
	return ok
}

// IsSignatureMethod reports whether id names a supported signature method.
func IsSignatureMethod(id AlgorithmID) bool {
	_, ok := signatureMethods[id]
	return ok
}

// shortNames maps the fragment-style names used in configuration files to
// algorithm identifiers.
var shortNames = map[string]AlgorithmID{
	"enveloped-signature":    EnvelopedSignature,
	"exc-c14n":               ExclusiveC14N,
	"exc-c14n-with-comments": ExclusiveC14NWithComments,
	"c14n":                   C14N10,
	"c14n-with-comments":     C14N10WithComments,
	"c14n11":                 C14N11,
	"sha1":                   SHA1,
	"sha256":                 SHA256,
	"sha384":                 SHA384,
	"sha512":                 SHA512,
	"rsa-sha1":               RSASHA1,
	"rsa-sha256":             RSASHA256,
	"rsa-sha384":             RSASHA384,
	"rsa-sha512":             RSASHA512,
	"ecdsa-sha256":           ECDSASHA256,
	"ecdsa-sha384":           ECDSASHA384,
	"ecdsa-sha512":           ECDSASHA512,
}

// LookupAlgorithm resolves a short name such as "rsa-sha256" to its identifier.
func LookupAlgorithm(name string) (AlgorithmID, bool) {
	id, ok := shortNames[strings.ToLower(name)]
	return id, ok
}

