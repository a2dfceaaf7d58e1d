package bah

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/alapierre/bahsig/xmlsig"
)

// findAll returns every element below root (inclusive) accepted by match, in document order.
func findAll(root *etree.Element, match func(*etree.Element) bool) []*etree.Element {
	var found []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		if match(el) {
			found = append(found, el)
		}
		for _, c := range el.ChildElements() {
			walk(c)
		}
	}
	walk(root)
	return found
}

func byLocalName(tag string) func(*etree.Element) bool {
	return func(el *etree.Element) bool {
		return el.Tag == tag
	}
}

func isDsigSignature(el *etree.Element) bool {
	return el.Tag == xmlsig.SignatureTag && el.NamespaceURI() == xmlsig.Namespace
}

// findUnique returns the only element named tag, regardless of its namespace prefix.
func findUnique(root *etree.Element, tag string) (*etree.Element, error) {
	found := findAll(root, byLocalName(tag))
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrMissingElement, tag)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: %d %s elements", ErrDuplicateElement, len(found), tag)
}

// findSignature returns the single ds:Signature element embedded in header.
// Signatures carried by the payload are not looked at.
func findSignature(header *etree.Element) (*etree.Element, error) {
	found := findAll(header, isDsigSignature)
	switch len(found) {
	case 0:
		return nil, ErrNotSigned
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: %d signatures", ErrDuplicateElement, len(found))
}

// headerSignature locates the header of doc and the signature embedded in it.
func headerSignature(doc *etree.Document, schema Schema) (*etree.Element, error) {
	root := doc.Root()
	if root == nil {
		return nil, ErrNotSigned
	}
	header, err := findUnique(root, schema.HeaderTag)
	if err != nil {
		return nil, err
	}
	return findSignature(header)
}

// messageParts locates the header and payload elements.
func messageParts(doc *etree.Document, schema Schema) (header, document *etree.Element, err error) {
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("%w: document has no root element", ErrMissingElement)
	}
	if header, err = findUnique(root, schema.HeaderTag); err != nil {
		return nil, nil, err
	}
	if document, err = findUnique(root, schema.DocumentTag); err != nil {
		return nil, nil, err
	}
	return header, document, nil
}
