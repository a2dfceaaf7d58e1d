package xmlsig

import (
	"fmt"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

func canonicalizer(t Transform) (dsig.Canonicalizer, error) {
	switch t.Algorithm {
	case ExclusiveC14N:
		return dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(t.PrefixList), nil
	case ExclusiveC14NWithComments:
		return dsig.MakeC14N10ExclusiveWithCommentsCanonicalizerWithPrefixList(t.PrefixList), nil
	case C14N10:
		return dsig.MakeC14N10RecCanonicalizer(), nil
	case C14N10WithComments:
		return dsig.MakeC14N10WithCommentsCanonicalizer(), nil
	case C14N11:
		return dsig.MakeC14N11Canonicalizer(), nil
	}
	return nil, fmt.Errorf("%w: canonicalization %s", ErrUnsupportedAlgorithm, t.Algorithm)
}

// Canonicalize serializes el with the given canonicalization transform. The
// element is canonicalized as it sits in its document: namespace declarations
// inherited from ancestors are taken into account. el is not modified.
func Canonicalize(el *etree.Element, t Transform) ([]byte, error) {
	c, err := canonicalizer(t)
	if err != nil {
		return nil, err
	}
	return c.Canonicalize(detach(el))
}

// Octets serializes el, with its in-scope namespace declarations, as a
// standalone XML fragment. It is the byte form used for manually bound
// reference content.
func Octets(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(detach(el))
	return doc.WriteToBytes()
}

// detach returns a deep copy of el that declares every namespace in scope at
// el's position, so it can be processed without its ancestors.
func detach(el *etree.Element) *etree.Element {
	cp := el.Copy()

	declared := make(map[string]bool)
	for _, a := range cp.Attr {
		if prefix, ok := nsDecl(a); ok {
			declared[prefix] = true
		}
	}

	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			prefix, ok := nsDecl(a)
			if !ok || declared[prefix] {
				continue
			}
			declared[prefix] = true
			if prefix == "" {
				cp.CreateAttr("xmlns", a.Value)
			} else {
				cp.CreateAttr("xmlns:"+prefix, a.Value)
			}
		}
	}
	return cp
}

// nsDecl reports whether a is a namespace declaration and returns the declared prefix.
func nsDecl(a etree.Attr) (string, bool) {
	switch {
	case a.Space == "xmlns":
		return a.Key, true
	case a.Space == "" && a.Key == "xmlns":
		return "", true
	}
	return "", false
}

func parseFragment(content []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("%w: parse content: %v", ErrUnresolvedReference, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: content has no root element", ErrUnresolvedReference)
	}
	return root, nil
}

// removeSignatures drops every ds:Signature element below el.
func removeSignatures(el *etree.Element) {
	for _, c := range el.ChildElements() {
		if isDsig(c, SignatureTag) {
			el.RemoveChild(c)
			continue
		}
		removeSignatures(c)
	}
}

func isDsig(el *etree.Element, tag string) bool {
	return el.Tag == tag && el.NamespaceURI() == Namespace
}

func documentRoot(el *etree.Element) *etree.Element {
	for {
		p := el.Parent()
		if p == nil || p.Tag == "" {
			return el
		}
		el = p
	}
}
