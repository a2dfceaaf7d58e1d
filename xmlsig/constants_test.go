package xmlsig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizerAlgorithms(t *testing.T) {
	for _, id := range []AlgorithmID{ExclusiveC14N, ExclusiveC14NWithComments, C14N10, C14N10WithComments, C14N11} {
		t.Run(id.String(), func(t *testing.T) {
			assert.True(t, IsCanonicalization(id))

			c, err := canonicalizer(Transform{Algorithm: id})
			require.NoError(t, err)
			assert.Equal(t, id.String(), c.Algorithm().String())
		})
	}

	_, err := canonicalizer(Transform{Algorithm: EnvelopedSignature})
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestLookupAlgorithm(t *testing.T) {
	tests := []struct {
		name string
		want AlgorithmID
		ok   bool
	}{
		{name: "rsa-sha256", want: RSASHA256, ok: true},
		{name: "ECDSA-SHA512", want: ECDSASHA512, ok: true},
		{name: "exc-c14n", want: ExclusiveC14N, ok: true},
		{name: "c14n11", want: C14N11, ok: true},
		{name: "enveloped-signature", want: EnvelopedSignature, ok: true},
		{name: "sha384", want: SHA384, ok: true},
		{name: "md5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := LookupAlgorithm(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	for _, id := range []AlgorithmID{RSASHA1, RSASHA256, RSASHA384, RSASHA512, ECDSASHA256, ECDSASHA384, ECDSASHA512} {
		assert.True(t, IsSignatureMethod(id), id)
	}
}
