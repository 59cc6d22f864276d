package pki

import (
	"encoding/asn1"
	"fmt"
	"unicode/utf8"

	"github.com/wolfeidau/sailor/internal/fault"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// nameAttribute describes how one attribute type is encoded. The bounds are
// the upper bounds from RFC 5280 Appendix A.
type nameAttribute struct {
	label string
	oid   asn1.ObjectIdentifier
	tag   cbasn1.Tag
	min   int
	max   int
}

var (
	attrCommonName         = nameAttribute{"commonName", OIDCommonName, cbasn1.UTF8String, 1, 64}
	attrCountry            = nameAttribute{"countryName", OIDCountry, cbasn1.PrintableString, 2, 2}
	attrLocality           = nameAttribute{"localityName", OIDLocality, cbasn1.UTF8String, 1, 128}
	attrOrganization       = nameAttribute{"organizationName", OIDOrganization, cbasn1.UTF8String, 1, 64}
	attrOrganizationalUnit = nameAttribute{"organizationalUnitName", OIDOrganizationalUnit, cbasn1.UTF8String, 1, 64}
	attrState              = nameAttribute{"stateOrProvinceName", OIDState, cbasn1.UTF8String, 1, 128}
	attrEmail              = nameAttribute{"emailAddress", OIDEmailAddress, cbasn1.IA5String, 1, 255}
)

type nameEntry struct {
	attr  nameAttribute
	value string
}

// BuildName returns the DER encoding of a distinguished name holding, in this
// order: CN, C, L, O, OU, ST and, when set, emailAddress. Each attribute is its
// own RDN. The result is meant for x509.Certificate.RawSubject so the order
// survives certificate creation.
func BuildName(attrs SubjectAttributes, commonName string) ([]byte, error) {
	entries := []nameEntry{
		{attrCommonName, commonName},
		{attrCountry, attrs.Country},
		{attrLocality, attrs.Locality},
		{attrOrganization, attrs.Organization},
		{attrOrganizationalUnit, attrs.OrganizationalUnit},
		{attrState, attrs.State},
	}
	if attrs.Email != "" {
		entries = append(entries, nameEntry{attrEmail, attrs.Email})
	}

	for _, e := range entries {
		if err := e.attr.check(e.value); err != nil {
			return nil, fault.Wrap(fault.Crypto, err, "failed to encode subject name")
		}
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(name *cryptobyte.Builder) {
		for _, e := range entries {
			name.AddASN1(cbasn1.SET, func(rdn *cryptobyte.Builder) {
				rdn.AddASN1(cbasn1.SEQUENCE, func(atv *cryptobyte.Builder) {
					atv.AddASN1ObjectIdentifier(e.attr.oid)
					atv.AddASN1(e.attr.tag, func(v *cryptobyte.Builder) {
						v.AddBytes([]byte(e.value))
					})
				})
			})
		}
	})

	der, err := b.Bytes()
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to encode subject name")
	}
	return der, nil
}

func (a nameAttribute) check(value string) error {
	n := utf8.RuneCountInString(value)
	if n < a.min || n > a.max {
		return fmt.Errorf("%s: length %d outside %d..%d", a.label, n, a.min, a.max)
	}

	switch a.tag {
	case cbasn1.PrintableString:
		for i := 0; i < len(value); i++ {
			if !isPrintable(value[i]) {
				return fmt.Errorf("%s: %q is not a PrintableString", a.label, value)
			}
		}
	case cbasn1.IA5String:
		for i := 0; i < len(value); i++ {
			if value[i] >= utf8.RuneSelf {
				return fmt.Errorf("%s: %q is not an IA5String", a.label, value)
			}
		}
	default:
		if !utf8.ValidString(value) {
			return fmt.Errorf("%s: invalid UTF-8", a.label)
		}
	}
	return nil
}

// isPrintable reports whether b is in the ASN.1 PrintableString alphabet.
func isPrintable(b byte) bool {
	return 'a' <= b && b <= 'z' ||
		'A' <= b && b <= 'Z' ||
		'0' <= b && b <= '9' ||
		'\'' <= b && b <= ')' ||
		'+' <= b && b <= '/' ||
		b == ' ' ||
		b == ':' ||
		b == '=' ||
		b == '?'
}
