package pki

import (
	"github.com/wolfeidau/sailor/internal/fault"
)

// NewFileSigner loads a CA key and certificate from PEM files and checks
// that they belong together.
func NewFileSigner(caKeyPath, caCertPath string) (*KeyCertPair, error) {
	caKey, err := LoadPrivateKey(caKeyPath)
	if err != nil {
		return nil, err
	}

	caCert, err := LoadCertificate(caCertPath)
	if err != nil {
		return nil, err
	}

	if err := verifyCertKeyPair(caCert, caKey); err != nil {
		return nil, fault.Wrap(fault.Crypto, err, "CA key and certificate do not match")
	}

	return &KeyCertPair{Key: caKey, Cert: caCert}, nil
}
