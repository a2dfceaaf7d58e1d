package bah

import "errors"

var (
	ErrAlreadySigned    = errors.New("message has already been signed")
	ErrNotSigned        = errors.New("message has not been signed")
	ErrMissingElement   = errors.New("element not found")
	ErrDuplicateElement = errors.New("element is not unique")
	ErrReferenceLayout  = errors.New("unexpected signature references")
	ErrNoSubjectKeyID   = errors.New("certificate has no subject key identifier")
	ErrInvalidConfig    = errors.New("invalid signature configuration")
)
