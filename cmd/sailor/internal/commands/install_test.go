package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sailor/internal/fault"
	"github.com/wolfeidau/sailor/internal/install"
	"github.com/wolfeidau/sailor/internal/pki"
)

func writeConfig(t *testing.T, bindAddress string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	installDir := filepath.Join(dir, "sailor")
	configPath := filepath.Join(dir, "sailor.yaml")

	data := fmt.Sprintf(`installation_dir: %s
systemd_dir: %s
log_file: %s
hostname: node1.local
node_name: node1
bind_address: %s
pki:
  rsa_size: 1024
  ca:
    common_name: Test CA
    expiry_in_days: 30
`, installDir, filepath.Join(dir, "systemd"), filepath.Join(dir, "logs", "sailor.log"), bindAddress)
	require.NoError(t, os.WriteFile(configPath, []byte(data), 0o600))

	return configPath, installDir
}

func TestInstallCmd_Run(t *testing.T) {
	configPath, installDir := writeConfig(t, "10.0.0.5")

	cmd := &InstallCmd{Config: configPath, SkipEtcd: true}
	require.NoError(t, cmd.Run(context.Background(), &Globals{Version: "test"}))

	keyPath, certPath := install.CAPaths(installDir)
	ca, err := pki.NewFileSigner(keyPath, certPath)
	require.NoError(t, err)
	assert.Equal(t, "Test CA", ca.Cert.Subject.CommonName)

	logData, err := os.ReadFile(filepath.Join(filepath.Dir(configPath), "logs", "sailor.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "installation completed")

	t.Run("rerun with the installed CA keeps it", func(t *testing.T) {
		cmd := &InstallCmd{Config: configPath, CAKey: keyPath, CACert: certPath, SkipEtcd: true}
		require.NoError(t, cmd.Run(context.Background(), &Globals{}))

		again, err := pki.LoadCertificate(certPath)
		require.NoError(t, err)
		assert.Equal(t, ca.Cert.Raw, again.Raw)
	})
}

func TestInstallCmd_InvalidBindAddress(t *testing.T) {
	configPath, installDir := writeConfig(t, "127.0.0.1")

	cmd := &InstallCmd{Config: configPath, SkipEtcd: true}
	err := cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.BindAddress))

	_, err = os.Stat(installDir)
	assert.True(t, os.IsNotExist(err))
}

func TestInstallCmd_MissingConfig(t *testing.T) {
	cmd := &InstallCmd{Config: filepath.Join(t.TempDir(), "missing.yaml")}
	err := cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.Config))
}
