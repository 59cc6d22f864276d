package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"time"

	"github.com/wolfeidau/sailor/internal/fault"
)

// LeafRequest describes one end-entity certificate.
type LeafRequest struct {
	CommonName   string
	ExpiryInDays int
	DNSNames     []string
	// IPAddresses are textual IPv4 or IPv6 literals.
	IPAddresses []string
}

// leafKeyUsage is digitalSignature, nonRepudiation and keyEncipherment.
const leafKeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment | x509.KeyUsageKeyEncipherment

// IssueCertificate generates a fresh RSA key and a certificate for it signed
// by ca. The subject uses the profile's attributes with req.CommonName. A
// subjectAltName extension is only added when req lists at least one name.
func IssueCertificate(profile Profile, ca *KeyCertPair, req LeafRequest) (*KeyCertPair, error) {
	if err := ca.Verify(); err != nil {
		return nil, err
	}
	if profile.RSASize <= 0 {
		return nil, fault.Newf(fault.Config, "rsa_size must be positive, got %d", profile.RSASize)
	}
	if req.ExpiryInDays <= 0 {
		return nil, fault.Newf(fault.Config, "expiry_in_days must be positive, got %d", req.ExpiryInDays)
	}

	ips, err := parseIPs(req.IPAddresses)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to parse subject alt names")
	}

	subject, err := BuildName(profile.Subject, req.CommonName)
	if err != nil {
		return nil, err
	}

	key, err := rsa.GenerateKey(rand.Reader, profile.RSASize)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to generate key")
	}

	serialNumber, err := NewSerialNumber()
	if err != nil {
		return nil, err
	}

	keyID, err := SubjectKeyID(&key.PublicKey)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to compute subject key identifier")
	}

	caKeyID := ca.Cert.SubjectKeyId
	if len(caKeyID) == 0 {
		caKeyID, err = SubjectKeyID(ca.Cert.PublicKey)
		if err != nil {
			return nil, fault.Wrap(fault.Crypto, err, "failed to compute authority key identifier")
		}
	}

	builders := []func() (pkix.Extension, error){
		func() (pkix.Extension, error) { return basicConstraintsExtension(false, false) },
		func() (pkix.Extension, error) { return keyUsageExtension(leafKeyUsage) },
		func() (pkix.Extension, error) { return subjectKeyIDExtension(keyID) },
		func() (pkix.Extension, error) {
			return authorityKeyIDExtension(caKeyID, ca.Cert.RawIssuer, ca.Cert.SerialNumber)
		},
	}
	if len(req.DNSNames) > 0 || len(ips) > 0 {
		builders = append(builders, func() (pkix.Extension, error) {
			return subjectAltNameExtension(req.DNSNames, ips)
		})
	}

	extensions, err := buildExtensions(builders...)
	if err != nil {
		return nil, err
	}

	notBefore, notAfter := Validity(time.Now(), req.ExpiryInDays)

	template := &x509.Certificate{
		SerialNumber:    serialNumber,
		RawSubject:      subject,
		NotBefore:       notBefore,
		NotAfter:        notAfter,
		PublicKey:       &key.PublicKey,
		ExtraExtensions: extensions,
	}

	certDER, err := ca.SignCertificate(template)
	if err != nil {
		return nil, err
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to parse certificate")
	}

	return &KeyCertPair{Key: key, Cert: cert}, nil
}
