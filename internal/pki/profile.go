package pki

import (
	"github.com/wolfeidau/sailor/internal/fault"
)

// SubjectAttributes are the distinguished name attributes shared by the CA
// and every certificate it issues.
type SubjectAttributes struct {
	Country            string
	Locality           string
	Organization       string
	OrganizationalUnit string
	State              string
	Email              string
}

// CAProfile holds the attributes specific to the root certificate.
type CAProfile struct {
	CommonName   string
	ExpiryInDays int
}

// Profile is the immutable PKI configuration for one provisioning run.
type Profile struct {
	RSASize int
	Subject SubjectAttributes
	CA      CAProfile
}

// Validate checks the numeric settings. String attributes are checked by
// BuildName when they are encoded.
func (p Profile) Validate() error {
	if p.RSASize <= 0 {
		return fault.Newf(fault.Config, "rsa_size must be positive, got %d", p.RSASize)
	}
	if p.CA.ExpiryInDays <= 0 {
		return fault.Newf(fault.Config, "ca expiry_in_days must be positive, got %d", p.CA.ExpiryInDays)
	}
	return nil
}
