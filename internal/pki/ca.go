package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"time"

	"github.com/wolfeidau/sailor/internal/fault"
)

// CreateCACertificate generates a fresh RSA key and a self-signed root
// certificate for it, using the subject attributes and CA settings of profile.
func CreateCACertificate(profile Profile) (*KeyCertPair, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	subject, err := BuildName(profile.Subject, profile.CA.CommonName)
	if err != nil {
		return nil, err
	}

	caKey, err := rsa.GenerateKey(rand.Reader, profile.RSASize)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to generate CA key")
	}

	serialNumber, err := NewSerialNumber()
	if err != nil {
		return nil, err
	}

	keyID, err := SubjectKeyID(&caKey.PublicKey)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to compute subject key identifier")
	}

	// The root names itself as its own authority, so the AKI issuer fields
	// carry its own name and serial.
	extensions, err := buildExtensions(
		func() (pkix.Extension, error) { return basicConstraintsExtension(true, true) },
		func() (pkix.Extension, error) { return keyUsageExtension(x509.KeyUsageCertSign | x509.KeyUsageCRLSign) },
		func() (pkix.Extension, error) { return subjectKeyIDExtension(keyID) },
		func() (pkix.Extension, error) { return authorityKeyIDExtension(keyID, subject, serialNumber) },
	)
	if err != nil {
		return nil, err
	}

	notBefore, notAfter := Validity(time.Now(), profile.CA.ExpiryInDays)

	template := &x509.Certificate{
		SerialNumber:       serialNumber,
		RawSubject:         subject,
		NotBefore:          notBefore,
		NotAfter:           notAfter,
		PublicKey:          &caKey.PublicKey,
		SignatureAlgorithm: x509.SHA256WithRSA,
		ExtraExtensions:    extensions,
	}

	// Self-sign the CA certificate
	caCertDER, err := x509.CreateCertificate(rand.Reader, template, template, &caKey.PublicKey, caKey)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to create CA certificate")
	}

	caCert, err := x509.ParseCertificate(caCertDER)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to parse CA certificate")
	}

	return &KeyCertPair{Key: caKey, Cert: caCert}, nil
}

func buildExtensions(builders ...func() (pkix.Extension, error)) ([]pkix.Extension, error) {
	extensions := make([]pkix.Extension, 0, len(builders))
	for _, build := range builders {
		ext, err := build()
		if err != nil {
			return nil, fault.Wrap(fault.Crypto, err, "failed to encode extension")
		}
		extensions = append(extensions, ext)
	}
	return extensions, nil
}
