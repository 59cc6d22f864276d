package pki

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing certificate should rotate", func(t *testing.T) {
		validation, err := Inspect(filepath.Join(dir, "missing.pem"), time.Hour)
		require.NoError(t, err)
		assert.False(t, validation.Exists)
		assert.True(t, validation.ShouldRotate)
	})

	ca, err := CreateCACertificate(testProfile())
	require.NoError(t, err)
	certPath := filepath.Join(dir, "ca.pem")
	require.NoError(t, SaveCertificate(ca.Cert, certPath))

	t.Run("valid certificate", func(t *testing.T) {
		validation, err := Inspect(certPath, 24*time.Hour)
		require.NoError(t, err)

		assert.True(t, validation.Exists)
		assert.False(t, validation.Expired)
		assert.False(t, validation.ShouldRotate)
		assert.Equal(t, validation.Subject, validation.Issuer)
		assert.Equal(t, ca.Cert.SerialNumber.Text(16), validation.Serial)
		assert.InDelta(t, 29, validation.DaysRemaining, 1)

		require.Len(t, validation.Extensions, 4)
		assert.Equal(t, ExtensionInfo{Name: "basicConstraints", Critical: true}, validation.Extensions[0])
		assert.Equal(t, ExtensionInfo{Name: "authorityKeyIdentifier", Critical: false}, validation.Extensions[3])
	})

	t.Run("within rotation threshold", func(t *testing.T) {
		validation, err := Inspect(certPath, 60*24*time.Hour)
		require.NoError(t, err)
		assert.False(t, validation.Expired)
		assert.True(t, validation.ShouldRotate)
	})
}
