package pki

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/wolfeidau/sailor/internal/fault"
)

// CertValidation holds certificate validation results
type CertValidation struct {
	Path          string
	Exists        bool
	Expired       bool
	Subject       string
	Issuer        string
	Serial        string
	NotBefore     time.Time
	NotAfter      time.Time
	DaysRemaining int
	ShouldRotate  bool
	Extensions    []ExtensionInfo
}

// ExtensionInfo summarises one extension of an inspected certificate.
type ExtensionInfo struct {
	Name     string
	Critical bool
}

// Inspect checks if a certificate exists and reports its validity status. A
// certificate expiring within rotationThreshold is flagged for rotation.
func Inspect(path string, rotationThreshold time.Duration) (*CertValidation, error) {
	validation := &CertValidation{Path: path}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		validation.ShouldRotate = true
		return validation, nil
	} else if err != nil {
		return nil, fault.Wrap(fault.FileIO, err, "failed to stat certificate")
	}

	validation.Exists = true

	cert, err := LoadCertificate(path)
	if err != nil {
		return nil, err
	}

	validation.Subject = cert.Subject.String()
	validation.Issuer = cert.Issuer.String()
	validation.Serial = cert.SerialNumber.Text(16)
	validation.NotBefore = cert.NotBefore
	validation.NotAfter = cert.NotAfter
	validation.DaysRemaining = int(time.Until(cert.NotAfter).Hours() / 24)

	for _, ext := range cert.Extensions {
		validation.Extensions = append(validation.Extensions, ExtensionInfo{
			Name:     ExtensionName(ext.Id),
			Critical: ext.Critical,
		})
	}

	if time.Now().After(cert.NotAfter) {
		validation.Expired = true
		validation.ShouldRotate = true
		return validation, nil
	}

	if time.Until(cert.NotAfter) < rotationThreshold {
		validation.ShouldRotate = true
	}

	return validation, nil
}
