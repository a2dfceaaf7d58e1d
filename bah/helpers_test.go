package bah

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"

	"github.com/alapierre/bahsig/signer"
	"github.com/alapierre/bahsig/testfixtures"
	"github.com/alapierre/bahsig/xmlsig"
)

const sampleMessage = `<?xml version="1.0" encoding="UTF-8"?>
<Message xmlns="urn:worldwire">
	<AppHdr xmlns="urn:iso:std:iso:20022:tech:xsd:head.001.001.01">
		<Fr><FIId><FinInstnId><BICFI>SGPTTEST003</BICFI></FinInstnId></FIId></Fr>
		<To><FIId><FinInstnId><BICFI>WORLDWIRE00</BICFI></FinInstnId></FIId></To>
		<BizMsgIdr>B20190819SGPTTEST003BAA4710449</BizMsgIdr>
		<MsgDefIdr>pacs.008.001.07</MsgDefIdr>
		<CreDt>2019-08-19T13:12:18Z</CreDt>
	</AppHdr>
	<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pacs.008.001.07">
		<FIToFICstmrCdtTrf>
			<GrpHdr>
				<MsgId>SGDDO19082019SGPTTEST00377793380333</MsgId>
				<NbOfTxs>1</NbOfTxs>
			</GrpHdr>
			<CdtTrfTxInf>
				<IntrBkSttlmAmt Ccy="USD">0.02</IntrBkSttlmAmt>
			</CdtTrfTxInf>
		</FIToFICstmrCdtTrf>
	</Document>
</Message>`

func parse(t *testing.T, s string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(s))
	return doc
}

func serialize(t *testing.T, doc *etree.Document) string {
	t.Helper()
	s, err := doc.WriteToString()
	require.NoError(t, err)
	return s
}

func keyMaterial(t *testing.T, kp *testfixtures.KeyPair) signer.Signer {
	t.Helper()
	s, err := signer.NewKeyPairSigner(kp.Key, kp.Certificate)
	require.NoError(t, err)
	return s
}

// signMessage signs xml with cfg and returns the serialized signed message.
func signMessage(t *testing.T, xml string, cfg Config, kp *testfixtures.KeyPair, opts ...Option) string {
	t.Helper()
	s, err := NewSigner(cfg, opts...)
	require.NoError(t, err)

	doc := parse(t, xml)
	signed, err := s.Sign(doc, keyMaterial(t, kp))
	require.NoError(t, err)
	require.Same(t, doc, signed)
	return serialize(t, signed)
}

func verifyMessage(t *testing.T, xml string, kp *testfixtures.KeyPair) (bool, error) {
	t.Helper()
	return Verify(parse(t, xml), kp.Key.Public())
}

func dsigElements(doc *etree.Document, tag string) []*etree.Element {
	return findAll(doc.Root(), func(el *etree.Element) bool {
		return el.Tag == tag && el.NamespaceURI() == xmlsig.Namespace
	})
}

func digestValues(t *testing.T, xml string) []string {
	t.Helper()
	var out []string
	for _, el := range dsigElements(parse(t, xml), xmlsig.DigestValueTag) {
		out = append(out, el.Text())
	}
	require.Len(t, out, 3)
	return out
}
