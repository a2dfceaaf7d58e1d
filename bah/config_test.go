package bah

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alapierre/bahsig/xmlsig"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "default", modify: func(*Config) {}},
		{name: "ecdsa sha384", modify: func(c *Config) { c.SignatureMethod = xmlsig.ECDSASHA384 }},
		{name: "unknown signature method", modify: func(c *Config) { c.SignatureMethod = "rsa" }, wantErr: true},
		{name: "digest used as signature method", modify: func(c *Config) { c.SignatureMethod = xmlsig.SHA256 }, wantErr: true},
		{name: "enveloped as canonicalization", modify: func(c *Config) { c.CanonicalizationMethod = xmlsig.EnvelopedSignature }, wantErr: true},
		{name: "wrong enveloped transform", modify: func(c *Config) { c.EnvelopedTransform = xmlsig.ExclusiveC14N }, wantErr: true},
		{name: "unknown header digest", modify: func(c *Config) { c.Header.DigestMethod = "md5" }, wantErr: true},
		{name: "unknown document transform", modify: func(c *Config) { c.Document.Transform = "xslt" }, wantErr: true},
		{name: "missing KeyInfo digest", modify: func(c *Config) { c.KeyInfo.DigestMethod = "" }, wantErr: true},
		{name: "empty prefix", modify: func(c *Config) { c.Prefix = "" }, wantErr: true},
		{name: "empty placeholder name", modify: func(c *Config) { c.Schema.SignatureTag = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestReferenceBuilders(t *testing.T) {
	cfg := DefaultConfig()

	header := HeaderReference(cfg, []byte("<AppHdr/>"))
	if assert.True(t, header.HasURI()) {
		assert.Equal(t, "", *header.URI)
	}
	assert.Equal(t, []xmlsig.Transform{
		{Algorithm: xmlsig.EnvelopedSignature},
		{Algorithm: xmlsig.ExclusiveC14N},
	}, header.Transforms)
	assert.Equal(t, []byte("<AppHdr/>"), header.Content)

	document := DocumentReference(cfg, []byte("<Document/>"))
	assert.False(t, document.HasURI())
	assert.Equal(t, []xmlsig.Transform{{Algorithm: xmlsig.ExclusiveC14N}}, document.Transforms)

	keyInfo := KeyInfoReference(cfg, "id42")
	if assert.True(t, keyInfo.HasURI()) {
		assert.Equal(t, "#id42", *keyInfo.URI)
	}
	assert.Nil(t, keyInfo.Content)
	assert.Equal(t, xmlsig.SHA256, keyInfo.DigestAlgorithm)
}
