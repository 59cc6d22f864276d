package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"

	"github.com/wolfeidau/sailor/internal/fault"
)

// CASigner signs certificate templates to create certificates.
type CASigner interface {
	// SignCertificate signs a certificate template and returns the DER-encoded certificate bytes.
	// The template must be fully populated with all required fields (subject, validity, extensions, etc.).
	SignCertificate(template *x509.Certificate) ([]byte, error)

	// GetCACertificate returns the CA certificate (public key only).
	GetCACertificate() (*x509.Certificate, error)
}

// KeyCertPair is a private key together with the certificate holding its
// public key. Pairs are never modified once created.
type KeyCertPair struct {
	Key  crypto.Signer
	Cert *x509.Certificate
}

var _ CASigner = (*KeyCertPair)(nil)

// SignCertificate signs template with the pair's key, using the pair's
// certificate as the issuer.
func (p *KeyCertPair) SignCertificate(template *x509.Certificate) ([]byte, error) {
	if template.SignatureAlgorithm == x509.UnknownSignatureAlgorithm {
		template.SignatureAlgorithm = signatureAlgorithm(p.Key)
	}
	der, err := x509.CreateCertificate(rand.Reader, template, p.Cert, template.PublicKey, p.Key)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to sign certificate")
	}
	return der, nil
}

// GetCACertificate returns the certificate half of the pair.
func (p *KeyCertPair) GetCACertificate() (*x509.Certificate, error) {
	return p.Cert, nil
}

// Verify checks that the certificate's public key matches the private key.
func (p *KeyCertPair) Verify() error {
	if p == nil || p.Key == nil || p.Cert == nil {
		return fault.New(fault.Crypto, "incomplete key/certificate pair")
	}
	return verifyCertKeyPair(p.Cert, p.Key)
}

// verifyCertKeyPair checks that a certificate's public key matches a private key
func verifyCertKeyPair(cert *x509.Certificate, key crypto.Signer) error {
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}

	pub, ok := key.Public().(equaler)
	if !ok {
		return fault.Newf(fault.Crypto, "unsupported public key type %T", key.Public())
	}
	if !pub.Equal(cert.PublicKey) {
		return fault.New(fault.Crypto, "public keys do not match")
	}
	return nil
}

// signatureAlgorithm picks the SHA-256 based algorithm for the key type.
func signatureAlgorithm(key crypto.Signer) x509.SignatureAlgorithm {
	switch key.Public().(type) {
	case *rsa.PublicKey:
		return x509.SHA256WithRSA
	case *ecdsa.PublicKey:
		return x509.ECDSAWithSHA256
	case ed25519.PublicKey:
		return x509.PureEd25519
	default:
		return x509.UnknownSignatureAlgorithm
	}
}
