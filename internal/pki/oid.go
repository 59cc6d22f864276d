package pki

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
)

// Distinguished name attribute types, in the order BuildName emits them.
var (
	OIDCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
	OIDCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	OIDLocality           = asn1.ObjectIdentifier{2, 5, 4, 7}
	OIDOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	OIDOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	OIDState              = asn1.ObjectIdentifier{2, 5, 4, 8}
	// OIDEmailAddress is the PKCS#9 emailAddress attribute.
	OIDEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
)

// X.509v3 certificate extensions written by this package (RFC 5280 4.2.1).
var (
	OIDExtSubjectKeyID     = asn1.ObjectIdentifier{2, 5, 29, 14}
	OIDExtKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtSubjectAltName   = asn1.ObjectIdentifier{2, 5, 29, 17}
	OIDExtBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDExtAuthorityKeyID   = asn1.ObjectIdentifier{2, 5, 29, 35}
)

// ErrExtensionNotFound is returned when a required extension is missing
var ErrExtensionNotFound = errors.New("extension not found")

// FindExtension returns the extension with the given id as it appears in the
// parsed certificate.
func FindExtension(cert *x509.Certificate, oid asn1.ObjectIdentifier) (pkix.Extension, error) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(oid) {
			return ext, nil
		}
	}
	return pkix.Extension{}, ErrExtensionNotFound
}

// ExtensionName returns a short human readable name for well known extension ids.
func ExtensionName(oid asn1.ObjectIdentifier) string {
	switch {
	case oid.Equal(OIDExtBasicConstraints):
		return "basicConstraints"
	case oid.Equal(OIDExtKeyUsage):
		return "keyUsage"
	case oid.Equal(OIDExtSubjectKeyID):
		return "subjectKeyIdentifier"
	case oid.Equal(OIDExtAuthorityKeyID):
		return "authorityKeyIdentifier"
	case oid.Equal(OIDExtSubjectAltName):
		return "subjectAltName"
	default:
		return oid.String()
	}
}
