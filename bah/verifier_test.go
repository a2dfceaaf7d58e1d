package bah

import (
	"crypto/x509"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alapierre/bahsig/testfixtures"
	"github.com/alapierre/bahsig/xmlsig"
)

func TestVerifyDetectsModification(t *testing.T) {
	kp := testfixtures.RSA(t, "tamper")
	signed := signMessage(t, sampleMessage, DefaultConfig(), kp)

	tests := []struct {
		name string
		old  string
		new  string
		want bool
	}{
		{name: "header text", old: "BAA4710449", new: "BAA4710448"},
		{name: "header attribute added", old: "<MsgDefIdr>", new: `<MsgDefIdr x="1">`},
		{name: "document text", old: "<NbOfTxs>1<", new: "<NbOfTxs>2<"},
		{name: "document attribute", old: `Ccy="USD"`, new: `Ccy="EUR"`},
		{name: "key identifier", old: "<ds:X509SKI>", new: "<ds:X509SKI>AAAA"},
		{name: "whitespace between parts", old: "</AppHdr>", new: "</AppHdr>\n\n\t", want: true},
		{name: "whitespace after document", old: "</Document>", new: "</Document>\n  ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Contains(t, signed, tt.old)
			modified := strings.Replace(signed, tt.old, tt.new, 1)

			ok, err := verifyMessage(t, modified, kp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifyDetectsSignatureValueChange(t *testing.T) {
	kp := testfixtures.RSA(t, "value")
	doc := parse(t, signMessage(t, sampleMessage, DefaultConfig(), kp))

	values := dsigElements(doc, xmlsig.SignatureValueTag)
	require.Len(t, values, 1)
	text := values[0].Text()
	flipped := "A"
	if text[0] == 'A' {
		flipped = "B"
	}
	values[0].SetText(flipped + text[1:])

	ok, err := Verify(doc, kp.Key.Public())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyErrors(t *testing.T) {
	kp := testfixtures.RSA(t, "errors")
	signed := signMessage(t, sampleMessage, DefaultConfig(), kp)

	tests := []struct {
		name    string
		xml     string
		wantErr error
	}{
		{
			name:    "unsigned",
			xml:     sampleMessage,
			wantErr: ErrNotSigned,
		},
		{
			name:    "two signatures in header",
			xml:     strings.Replace(signed, "</AppHdr>", "<Extra>"+signatureOf(t, signed)+"</Extra></AppHdr>", 1),
			wantErr: ErrDuplicateElement,
		},
		{
			name:    "document removed",
			xml:     dropElement(t, signed, "Document"),
			wantErr: ErrMissingElement,
		},
		{
			name:    "unknown signature method",
			xml:     strings.Replace(signed, string(xmlsig.RSASHA256), "urn:unknown", 1),
			wantErr: xmlsig.ErrUnsupportedAlgorithm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := verifyMessage(t, tt.xml, kp)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, ok)
		})
	}
}

func TestVerifyRejectsUnexpectedReferences(t *testing.T) {
	kp := testfixtures.RSA(t, "layout")
	signed := signMessage(t, sampleMessage, DefaultConfig(), kp)

	doc := parse(t, signed)
	refs := dsigElements(doc, xmlsig.ReferenceTag)
	require.Len(t, refs, 3)
	refs[2].Parent().RemoveChild(refs[2])

	ok, err := Verify(doc, kp.Key.Public())
	assert.ErrorIs(t, err, ErrReferenceLayout)
	assert.False(t, ok)

	doc = parse(t, signed)
	refs = dsigElements(doc, xmlsig.ReferenceTag)
	refs[2].CreateAttr(xmlsig.URIAttr, "#elsewhere")

	ok, err = Verify(doc, kp.Key.Public())
	assert.ErrorIs(t, err, ErrReferenceLayout)
	assert.False(t, ok)
}

func TestCheckLayout(t *testing.T) {
	ki := func(id string) *xmlsig.Signature {
		sig := &xmlsig.Signature{}
		sig.KeyInfo = parse(t, `<KeyInfo Id="`+id+`"/>`).Root()
		return sig
	}
	ref := func(uri *string) *xmlsig.Reference {
		return xmlsig.NewReference(uri, xmlsig.SHA256)
	}

	tests := []struct {
		name    string
		refs    []*xmlsig.Reference
		wantErr bool
	}{
		{name: "signer layout", refs: []*xmlsig.Reference{ref(xmlsig.URI("")), ref(nil), ref(xmlsig.URI("#id1"))}},
		{name: "order does not matter", refs: []*xmlsig.Reference{ref(xmlsig.URI("#id1")), ref(nil), ref(xmlsig.URI(""))}},
		{name: "two payload references", refs: []*xmlsig.Reference{ref(nil), ref(nil), ref(xmlsig.URI("#id1"))}, wantErr: true},
		{name: "external reference", refs: []*xmlsig.Reference{ref(xmlsig.URI("")), ref(nil), ref(xmlsig.URI("http://example.com/"))}, wantErr: true},
		{name: "fragment is not KeyInfo", refs: []*xmlsig.Reference{ref(xmlsig.URI("")), ref(nil), ref(xmlsig.URI("#id2"))}, wantErr: true},
		{name: "four references", refs: []*xmlsig.Reference{ref(xmlsig.URI("")), ref(nil), ref(xmlsig.URI("#id1")), ref(nil)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := ki("id1")
			sig.References = tt.refs
			err := checkLayout(sig)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrReferenceLayout)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestKeyIdentifier(t *testing.T) {
	a := testfixtures.RSA(t, "a")
	b := testfixtures.ECDSA(t, "b")
	c := testfixtures.RSAWithoutSKI(t, "c")

	id, err := KeyIdentifier(parse(t, signMessage(t, sampleMessage, DefaultConfig(), a)))
	require.NoError(t, err)
	assert.Equal(t, a.Certificate.SubjectKeyId, id)

	certs := []*x509.Certificate{c.Certificate, b.Certificate, a.Certificate}
	assert.Same(t, a.Certificate, SelectCertificate(id, certs))
	assert.Nil(t, SelectCertificate(id, certs[:2]))
	assert.Nil(t, SelectCertificate(nil, certs))

	_, err = KeyIdentifier(parse(t, sampleMessage))
	assert.ErrorIs(t, err, ErrNotSigned)
}

func TestNewVerifierValidatesSchema(t *testing.T) {
	schema := DefaultSchema()
	schema.DocumentTag = schema.HeaderTag
	_, err := NewVerifier(schema)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// signatureOf returns the serialized ds:Signature element of a signed message.
func signatureOf(t *testing.T, signed string) string {
	t.Helper()
	start := strings.Index(signed, "<ds:Signature")
	end := strings.Index(signed, "</ds:Signature>")
	require.True(t, start >= 0 && end > start)
	return signed[start : end+len("</ds:Signature>")]
}

// dropElement removes the first element named tag from xml.
func dropElement(t *testing.T, xml, tag string) string {
	t.Helper()
	doc := parse(t, xml)
	el := doc.FindElement("//" + tag)
	require.NotNil(t, el)
	el.Parent().RemoveChild(el)
	return serialize(t, doc)
}
