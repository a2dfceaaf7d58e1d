package xmlsig

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// input is the data flowing through a transform chain: either a node-set
// rooted at node or an octet stream.
type input struct {
	node   *etree.Element
	octets []byte
}

func (in input) element() (*etree.Element, error) {
	if in.node != nil {
		return in.node, nil
	}
	return parseFragment(in.octets)
}

func (in input) bytes() ([]byte, error) {
	if in.node == nil {
		return in.octets, nil
	}
	return Canonicalize(in.node, Transform{Algorithm: C14N10})
}

// digest runs the reference through its transform chain and hashes the
// result. scope is any element of the document holding the signature.
func (r *Reference) digest(scope *etree.Element) ([]byte, error) {
	hash, ok := digestAlgorithms[r.DigestAlgorithm]
	if !ok {
		return nil, fmt.Errorf("%w: digest %s", ErrUnsupportedAlgorithm, r.DigestAlgorithm)
	}

	in, err := r.resolve(scope)
	if err != nil {
		return nil, err
	}

	for _, t := range r.Transforms {
		if in, err = apply(t, in); err != nil {
			return nil, fmt.Errorf("reference %s: %w", r, err)
		}
	}

	data, err := in.bytes()
	if err != nil {
		return nil, err
	}

	h := hash.New()
	h.Write(data)
	return h.Sum(nil), nil
}

func (r *Reference) resolve(scope *etree.Element) (input, error) {
	if r.Content != nil {
		return input{octets: r.Content}, nil
	}
	if r.URI == nil {
		return input{}, fmt.Errorf("%w: reference without URI has no bound content", ErrUnresolvedReference)
	}

	uri := *r.URI
	switch {
	case uri == "":
		return input{node: detach(documentRoot(scope))}, nil
	case strings.HasPrefix(uri, "#"):
		el, err := findByID(documentRoot(scope), uri[1:])
		if err != nil {
			return input{}, err
		}
		return input{node: detach(el)}, nil
	}
	return input{}, fmt.Errorf("%w: external URI %q", ErrUnresolvedReference, uri)
}

func apply(t Transform, in input) (input, error) {
	if t.Algorithm == EnvelopedSignature {
		el, err := in.element()
		if err != nil {
			return input{}, err
		}
		removeSignatures(el)
		return input{node: el}, nil
	}

	el, err := in.element()
	if err != nil {
		return input{}, err
	}
	out, err := Canonicalize(el, t)
	if err != nil {
		return input{}, err
	}
	return input{octets: out}, nil
}

// findByID returns the single element below root whose Id, ID or id attribute equals id.
func findByID(root *etree.Element, id string) (*etree.Element, error) {
	var found []*etree.Element
	walk(root, func(el *etree.Element) {
		for _, name := range idAttrs {
			if a := el.SelectAttr(name); a != nil && a.Value == id {
				found = append(found, el)
				return
			}
		}
	})

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: no element with id %q", ErrUnresolvedReference, id)
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: id %q is not unique", ErrUnresolvedReference, id)
}

func walk(el *etree.Element, fn func(*etree.Element)) {
	fn(el)
	for _, c := range el.ChildElements() {
		walk(c, fn)
	}
}
