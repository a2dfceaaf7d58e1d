package bah

import (
	"github.com/alapierre/bahsig/xmlsig"
)

// HeaderReference covers the header subtree: URI="" with the enveloped
// transform followed by the configured canonicalization.
func HeaderReference(cfg Config, content []byte) *xmlsig.Reference {
	return xmlsig.NewReference(xmlsig.URI(""), cfg.Header.DigestMethod,
		xmlsig.Transform{Algorithm: cfg.EnvelopedTransform},
		xmlsig.Transform{Algorithm: cfg.Header.Transform},
	).SetContent(content)
}

// DocumentReference covers the payload subtree. It carries no URI.
func DocumentReference(cfg Config, content []byte) *xmlsig.Reference {
	return xmlsig.NewReference(nil, cfg.Document.DigestMethod,
		xmlsig.Transform{Algorithm: cfg.Document.Transform},
	).SetContent(content)
}

// KeyInfoReference covers the KeyInfo element identified by keyInfoID.
func KeyInfoReference(cfg Config, keyInfoID string) *xmlsig.Reference {
	return xmlsig.NewReference(xmlsig.URI("#"+keyInfoID), cfg.KeyInfo.DigestMethod,
		xmlsig.Transform{Algorithm: cfg.KeyInfo.Transform},
	)
}
