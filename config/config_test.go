package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alapierre/bahsig/bah"
	"github.com/alapierre/bahsig/xmlsig"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, bah.DefaultConfig(), cfg.Signature)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, "stderr", cfg.Log.OutputPath)
	assert.Empty(t, cfg.Keys.PrivateKey)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "bahsig.yaml", `
signature:
  signature_method: ecdsa-sha384
  header:
    digest_method: http://www.w3.org/2001/04/xmlenc#sha512
  include_issuer_serial: true
  schema:
    signature_tag: Signature
    signature_prefix: sig
    signature_namespace: urn:example:signature
keys:
  private_key: /etc/bahsig/key.pem
  certificate: /etc/bahsig/cert.pem
  pkcs11:
    module: /usr/lib/softhsm/libsofthsm2.so
    slot: 2
log:
  level: debug
  encoding: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, xmlsig.ECDSASHA384, cfg.Signature.SignatureMethod)
	assert.Equal(t, xmlsig.SHA512, cfg.Signature.Header.DigestMethod)
	assert.Equal(t, xmlsig.SHA256, cfg.Signature.Document.DigestMethod, "untouched keys keep defaults")
	assert.Equal(t, xmlsig.ExclusiveC14N, cfg.Signature.Header.Transform)
	assert.True(t, cfg.Signature.IncludeIssuerSerial)
	assert.Equal(t, "Signature", cfg.Signature.Schema.SignatureTag)
	assert.Equal(t, bah.HeaderTag, cfg.Signature.Schema.HeaderTag)
	assert.Equal(t, "urn:example:signature", cfg.Signature.Schema.SignatureNamespace)

	assert.Equal(t, "/etc/bahsig/key.pem", cfg.Keys.PrivateKey)
	assert.Equal(t, "/usr/lib/softhsm/libsofthsm2.so", cfg.Keys.Pkcs11.Module)
	assert.Equal(t, uint(2), cfg.Keys.Pkcs11.Slot)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "bahsig.toml", `
[signature]
canonicalization_method = "c14n11"
prefix = "dsig"

[keys]
public_key = "/etc/bahsig/pub.pem"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, xmlsig.C14N11, cfg.Signature.CanonicalizationMethod)
	assert.Equal(t, "dsig", cfg.Signature.Prefix)
	assert.Equal(t, "/etc/bahsig/pub.pem", cfg.Keys.PublicKey)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "bahsig.yaml", `
keys:
  pkcs11:
    pin: from-file
log:
  level: warn
`)
	t.Setenv("BAHSIG_KEYS_PKCS11_PIN", "1234")
	t.Setenv("BAHSIG_LOG_LEVEL", "debug")
	t.Setenv("BAHSIG_SIGNATURE_SIGNATURE_METHOD", "rsa-sha512")
	t.Setenv("BAHSIG_SIGNATURE_INCLUDE_ISSUER_SERIAL", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1234", cfg.Keys.Pkcs11.Pin)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, xmlsig.RSASHA512, cfg.Signature.SignatureMethod)
	assert.True(t, cfg.Signature.IncludeIssuerSerial)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = Load(writeConfig(t, "broken.yaml", "signature: ["))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "invalid.yaml", "signature:\n  signature_method: md5-rsa\n"))
	assert.ErrorIs(t, err, bah.ErrInvalidConfig)
}
