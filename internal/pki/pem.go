package pki

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/wolfeidau/sailor/internal/fault"
)

const (
	pemTypePrivateKey    = "PRIVATE KEY"
	pemTypeRSAPrivateKey = "RSA PRIVATE KEY"
	pemTypeECPrivateKey  = "EC PRIVATE KEY"
	pemTypeCertificate   = "CERTIFICATE"
	privateKeyFileMode   = 0600
	certificateFileMode  = 0644
)

// EncodePrivateKey returns key as a PKCS#8 "PRIVATE KEY" PEM block.
func EncodePrivateKey(key crypto.Signer) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to marshal private key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der}), nil
}

// EncodeCertificate returns cert as a "CERTIFICATE" PEM block.
func EncodeCertificate(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: cert.Raw})
}

// SavePrivateKey writes key to path as PKCS#8 PEM, readable by the owner only.
func SavePrivateKey(key crypto.Signer, path string) error {
	keyPEM, err := EncodePrivateKey(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, keyPEM, privateKeyFileMode); err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to write private key")
	}
	return nil
}

// SaveCertificate writes cert to path as PEM.
func SaveCertificate(cert *x509.Certificate, path string) error {
	if err := os.WriteFile(path, EncodeCertificate(cert), certificateFileMode); err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to write certificate")
	}
	return nil
}

// SaveKeyCertPair writes both halves of pair.
func SaveKeyCertPair(pair *KeyCertPair, keyPath, certPath string) error {
	if err := SavePrivateKey(pair.Key, keyPath); err != nil {
		return err
	}
	return SaveCertificate(pair.Cert, certPath)
}

// LoadPrivateKey reads a PEM private key in PKCS#8, PKCS#1 or SEC 1 form.
func LoadPrivateKey(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(fault.FileIO, err, "failed to read private key file")
	}
	return ParsePrivateKeyPEM(data)
}

// ParsePrivateKeyPEM decodes the first PEM block in data as a private key.
func ParsePrivateKeyPEM(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fault.New(fault.Crypto, "failed to decode private key PEM")
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case pemTypeRSAPrivateKey:
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case pemTypeECPrivateKey:
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to parse private key")
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fault.Newf(fault.Crypto, "unsupported private key type %T", key)
	}
	return signer, nil
}

// LoadCertificate reads a PEM encoded X.509 certificate.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Wrap(fault.FileIO, err, "failed to read certificate file")
	}
	return ParseCertificatePEM(data)
}

// ParseCertificatePEM decodes the first PEM block in data as a certificate.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeCertificate {
		return nil, fault.New(fault.Crypto, "failed to decode certificate PEM")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "failed to parse certificate")
	}
	return cert, nil
}
