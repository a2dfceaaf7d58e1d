package signer

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alapierre/bahsig/testfixtures"
)

func TestPKCS12Signer(t *testing.T) {
	path := os.Getenv("PKCS12_FILE")
	if path == "" {
		t.Skip("skipping: PKCS12_FILE environment variable is not set")
	}

	sig, err := NewPKCS12Signer(path, os.Getenv("PKCS12_PASSWORD"))
	require.NoError(t, err)

	certs, err := sig.GetCerts()
	require.NoError(t, err)
	assert.NotEmpty(t, certs)

	_, err = sig.SignString("Hello World!")
	assert.NoError(t, err)
}

func TestPKCS12SignerChain(t *testing.T) {
	leaf := testfixtures.RSA(t, "leaf")
	root := testfixtures.RSA(t, "root")
	intermediate := testfixtures.ECDSA(t, "intermediate")

	path := leaf.WritePKCS12(t, t.TempDir(), "s3cret", intermediate.Certificate, root.Certificate)

	sig, err := NewPKCS12Signer(path, "s3cret")
	require.NoError(t, err)
	defer sig.Close()

	certs, err := sig.GetCerts()
	require.NoError(t, err)
	require.Len(t, certs, 3)
	assert.Equal(t, leaf.Certificate.Raw, certs[0])
	assert.ElementsMatch(t, [][]byte{intermediate.Certificate.Raw, root.Certificate.Raw}, certs[1:])

	cert, err := Leaf(sig)
	require.NoError(t, err)
	assert.Equal(t, "leaf", cert.Subject.CommonName)

	_, err = sig.SignString("Hello World!")
	assert.NoError(t, err)
}

func TestPKCS12SignerSingleCertificate(t *testing.T) {
	kp := testfixtures.ECDSA(t, "single")
	path := kp.WritePKCS12(t, t.TempDir(), "p")

	sig, err := NewPKCS12Signer(path, "p")
	require.NoError(t, err)

	certs, err := sig.GetCerts()
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, kp.Certificate.Raw, certs[0])
}

func TestPKCS12SignerErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewPKCS12Signer(filepath.Join(dir, "missing.p12"), "")
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.p12")
	require.NoError(t, os.WriteFile(garbage, []byte("not a keystore"), 0o600))
	_, err = NewPKCS12Signer(garbage, "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPassphraseRequired)

	protected := testfixtures.RSA(t, "protected").WritePKCS12(t, dir, "s3cret")
	_, err = NewPKCS12Signer(protected, "wrong")
	assert.ErrorIs(t, err, ErrPassphraseRequired)
}

func TestLeafFirst(t *testing.T) {
	leaf := testfixtures.RSA(t, "leaf")
	ca := testfixtures.RSA(t, "ca")

	tests := []struct {
		name  string
		chain []*x509.Certificate
		want  []*x509.Certificate
	}{
		{
			name:  "already ordered",
			chain: []*x509.Certificate{leaf.Certificate, ca.Certificate},
			want:  []*x509.Certificate{leaf.Certificate, ca.Certificate},
		},
		{
			name:  "issuer listed first",
			chain: []*x509.Certificate{ca.Certificate, leaf.Certificate},
			want:  []*x509.Certificate{leaf.Certificate, ca.Certificate},
		},
		{
			name:  "no matching certificate",
			chain: []*x509.Certificate{ca.Certificate},
			want:  []*x509.Certificate{ca.Certificate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, leafFirst(leaf.Key, tt.chain))
		})
	}
}
