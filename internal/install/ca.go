package install

import (
	"crypto/x509"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/sailor/internal/fault"
	"github.com/wolfeidau/sailor/internal/pki"
)

const (
	pkiDirName = "pki"
	caName     = "sailor-ca"
)

// CAPaths returns where the CA key and certificate are kept below
// installationDir.
func CAPaths(installationDir string) (keyPath, certPath string) {
	dir := filepath.Join(installationDir, pkiDirName)
	return filepath.Join(dir, caName+".private-key.pem"), filepath.Join(dir, caName+".pem")
}

// resolveCA makes sure c carries a CA and that the CA is on disk. A CA
// already in c is kept as is. Otherwise the custom CA at keyPath and
// certPath is used if both load, and a new CA is generated if not.
func resolveCA(logger zerolog.Logger, c Context, keyPath, certPath string) (Context, error) {
	if c.Settings == nil {
		return Context{}, fault.New(fault.Config, "settings not loaded")
	}

	if c.CA != nil && !c.HasCA() {
		logger.Warn().Msg("discarding incomplete CA material")
		c = c.WithCA(nil)
	}

	if !c.HasCA() {
		pair, err := loadCustomCA(keyPath, certPath)
		switch {
		case err == nil:
			logger.Info().
				Str("key", keyPath).
				Str("cert", certPath).
				Msg("using custom CA")
			c = c.WithCA(pair)
		case fault.Is(err, fault.CustomCANotSet):
			logger.Info().Msg(err.Error())
		default:
			logger.Warn().
				Err(err).
				Str("kind", fault.KindOf(err).String()).
				Msg("could not load custom CA, generating a new one")
		}
	}

	if !c.HasCA() {
		logger.Info().Msg("generating new CA certificate")

		pair, err := pki.CreateCACertificate(c.Settings.Profile())
		if err != nil {
			return Context{}, err
		}
		c = c.WithCA(pair)
	}

	destKey, destCert := CAPaths(c.Settings.InstallationDir)
	if err := os.MkdirAll(filepath.Dir(destKey), 0o755); err != nil {
		return Context{}, fault.Wrap(fault.FileIO, err, "failed to create pki directory")
	}
	if err := pki.SaveKeyCertPair(c.CA, destKey, destCert); err != nil {
		return Context{}, err
	}

	logger.Info().
		Str("path_cert", destCert).
		Str("path_key", destKey).
		Msg("saved CA certificate")

	return c.WithArtifact(ArtifactCAKey, destKey).WithArtifact(ArtifactCACert, destCert), nil
}

// loadCustomCA loads the operator supplied CA. Material is only returned when
// both files load, belong together and the certificate may sign others.
func loadCustomCA(keyPath, certPath string) (*pki.KeyCertPair, error) {
	if keyPath == "" || certPath == "" {
		return nil, fault.New(fault.CustomCANotSet, "custom CA key and certificate not both set")
	}

	pair, err := pki.NewFileSigner(keyPath, certPath)
	if err != nil {
		return nil, err
	}
	if !pair.Cert.IsCA || pair.Cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		return nil, fault.Newf(fault.Crypto, "certificate %s is not a signing CA", certPath)
	}
	return pair, nil
}
