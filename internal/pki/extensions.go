package pki

import (
	"crypto"
	"crypto/sha1" // #nosec G505 - RFC 5280 4.2.1.2 method (1) key identifier
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"math/bits"
	"net"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// The encoders below produce the exact extension bytes for ExtraExtensions.
// x509.CreateCertificate skips generating any extension whose id is already
// present there, so passing all of them keeps both order and criticality
// under our control.

var (
	tagKeyID      = cbasn1.Tag(0).ContextSpecific()
	tagCertIssuer = cbasn1.Tag(1).ContextSpecific().Constructed()
	tagCertSerial = cbasn1.Tag(2).ContextSpecific()
	tagDNSName    = cbasn1.Tag(2).ContextSpecific()
	tagDirectory  = cbasn1.Tag(4).ContextSpecific().Constructed()
	tagIPAddress  = cbasn1.Tag(7).ContextSpecific()
)

func basicConstraintsExtension(isCA, critical bool) (pkix.Extension, error) {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(seq *cryptobyte.Builder) {
		// cA is DEFAULT FALSE so DER omits it unless set.
		if isCA {
			seq.AddASN1Boolean(true)
		}
	})
	value, err := b.Bytes()
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("basic constraints: %w", err)
	}
	return pkix.Extension{Id: OIDExtBasicConstraints, Critical: critical, Value: value}, nil
}

func keyUsageExtension(usage x509.KeyUsage) (pkix.Extension, error) {
	// KeyUsage bit 0 (digitalSignature) is the most significant bit of the
	// first octet.
	var a [2]byte
	a[0] = bits.Reverse8(byte(usage))
	a[1] = bits.Reverse8(byte(usage >> 8))
	content := a[:1]
	if a[1] != 0 {
		content = a[:2]
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.BIT_STRING, func(bs *cryptobyte.Builder) {
		bs.AddUint8(uint8(unusedBits(content)))
		bs.AddBytes(content)
	})
	value, err := b.Bytes()
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("key usage: %w", err)
	}
	return pkix.Extension{Id: OIDExtKeyUsage, Critical: true, Value: value}, nil
}

// unusedBits counts the trailing zero bits of the final octet, which DER
// requires to be declared as unused.
func unusedBits(content []byte) int {
	last := content[len(content)-1]
	if last == 0 {
		return 0
	}
	return bits.TrailingZeros8(last)
}

// SubjectKeyID derives a key identifier as the SHA-1 hash of the
// subjectPublicKey BIT STRING.
func SubjectKeyID(pub crypto.PublicKey) ([]byte, error) {
	spki, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}

	var info struct {
		Algorithm pkix.AlgorithmIdentifier
		PublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spki, &info); err != nil {
		return nil, fmt.Errorf("unmarshal public key: %w", err)
	}

	sum := sha1.Sum(info.PublicKey.Bytes) // #nosec G401
	return sum[:], nil
}

func subjectKeyIDExtension(keyID []byte) (pkix.Extension, error) {
	var b cryptobyte.Builder
	b.AddASN1OctetString(keyID)
	value, err := b.Bytes()
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("subject key identifier: %w", err)
	}
	return pkix.Extension{Id: OIDExtSubjectKeyID, Value: value}, nil
}

// authorityKeyIDExtension writes all three AuthorityKeyIdentifier fields: the
// issuer's key id plus the issuer certificate's own issuer name and serial.
func authorityKeyIDExtension(keyID, issuerName []byte, issuerSerial *big.Int) (pkix.Extension, error) {
	var serial cryptobyte.Builder
	serial.AddASN1BigInt(issuerSerial)
	serialDER, err := serial.Bytes()
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("authority key identifier serial: %w", err)
	}
	var serialContent cryptobyte.String
	input := cryptobyte.String(serialDER)
	if !input.ReadASN1(&serialContent, cbasn1.INTEGER) {
		return pkix.Extension{}, fmt.Errorf("authority key identifier serial: malformed integer")
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(aki *cryptobyte.Builder) {
		aki.AddASN1(tagKeyID, func(id *cryptobyte.Builder) {
			id.AddBytes(keyID)
		})
		aki.AddASN1(tagCertIssuer, func(names *cryptobyte.Builder) {
			names.AddASN1(tagDirectory, func(dn *cryptobyte.Builder) {
				dn.AddBytes(issuerName)
			})
		})
		aki.AddASN1(tagCertSerial, func(s *cryptobyte.Builder) {
			s.AddBytes(serialContent)
		})
	})
	value, err := b.Bytes()
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("authority key identifier: %w", err)
	}
	return pkix.Extension{Id: OIDExtAuthorityKeyID, Value: value}, nil
}

// subjectAltNameExtension lists every DNS name followed by every IP address,
// keeping caller order and duplicates.
func subjectAltNameExtension(dnsNames []string, ips []net.IP) (pkix.Extension, error) {
	for _, name := range dnsNames {
		for i := 0; i < len(name); i++ {
			if name[i] >= 0x80 {
				return pkix.Extension{}, fmt.Errorf("subject alt name: %q is not an IA5String", name)
			}
		}
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(names *cryptobyte.Builder) {
		for _, name := range dnsNames {
			names.AddASN1(tagDNSName, func(n *cryptobyte.Builder) {
				n.AddBytes([]byte(name))
			})
		}
		for _, ip := range ips {
			raw := ip
			if v4 := ip.To4(); v4 != nil {
				raw = v4
			}
			names.AddASN1(tagIPAddress, func(n *cryptobyte.Builder) {
				n.AddBytes(raw)
			})
		}
	})
	value, err := b.Bytes()
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("subject alt name: %w", err)
	}
	return pkix.Extension{Id: OIDExtSubjectAltName, Value: value}, nil
}

// parseIPs converts IP literals, rejecting anything that does not parse.
func parseIPs(literals []string) ([]net.IP, error) {
	ips := make([]net.IP, 0, len(literals))
	for _, literal := range literals {
		ip := net.ParseIP(literal)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address %q", literal)
		}
		ips = append(ips, ip)
	}
	return ips, nil
}
