package install

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/sailor/internal/config"
	"github.com/wolfeidau/sailor/internal/fault"
	"github.com/wolfeidau/sailor/internal/fsutil"
	"github.com/wolfeidau/sailor/internal/pki"
	"github.com/wolfeidau/sailor/internal/templates"
	"github.com/wolfeidau/sailor/internal/vendored"
)

const (
	etcdDirName     = "etcd"
	etcdBinaryName  = "etcd"
	etcdctlName     = "etcdctl"
	etcdEnvFileName = "etcd.env"
	etcdUnitName    = "etcd.service"
)

var etcdArtifacts = []string{etcdBinaryName, etcdctlName}

// etcdLayout is where the etcd installation lives on disk.
type etcdLayout struct {
	dir        string
	certsDir   string
	dataDir    string
	binary     string
	etcdctl    string
	envFile    string
	unitFile   string
	peerKey    string
	peerCert   string
	clientKey  string
	clientCert string
}

func newEtcdLayout(settings *config.Settings) etcdLayout {
	dir := filepath.Join(settings.InstallationDir, etcdDirName)
	certs := filepath.Join(dir, "certs")
	return etcdLayout{
		dir:        dir,
		certsDir:   certs,
		dataDir:    filepath.Join(dir, "data"),
		binary:     filepath.Join(dir, etcdBinaryName),
		etcdctl:    filepath.Join(dir, etcdctlName),
		envFile:    filepath.Join(dir, etcdEnvFileName),
		unitFile:   filepath.Join(settings.SystemdDir, etcdUnitName),
		peerKey:    filepath.Join(certs, "peer.private-key.pem"),
		peerCert:   filepath.Join(certs, "peer.pem"),
		clientKey:  filepath.Join(certs, "client.private-key.pem"),
		clientCert: filepath.Join(certs, "client.pem"),
	}
}

func (i *Installer) installEtcd(ctx context.Context, logger zerolog.Logger, c Context) (Context, error) {
	if !c.HasCA() {
		return Context{}, fault.New(fault.Crypto, "CA must be resolved before installing etcd")
	}

	settings := c.Settings
	layout := newEtcdLayout(settings)
	logger = logger.With().Str("component", etcdDirName).Logger()

	if err := os.MkdirAll(layout.dir, 0o755); err != nil {
		return Context{}, fault.Wrap(fault.FileIO, err, "failed to create etcd directory")
	}

	if err := i.unpackEtcd(settings.Etcd.Archive, layout.dir); err != nil {
		return Context{}, err
	}
	logger.Info().Str("archive", settings.Etcd.Archive).Msg("unpacked etcd binaries")

	c, err := issueEtcdCertificates(logger, c, layout)
	if err != nil {
		return Context{}, err
	}

	joining := len(settings.Etcd.JoinEndpoints) > 0
	if err := i.renderEtcdFiles(settings, layout, joining); err != nil {
		return Context{}, err
	}
	c = c.WithArtifact(ArtifactEtcdDir, layout.dir).
		WithArtifact(ArtifactEtcdEnv, layout.envFile).
		WithArtifact(ArtifactEtcdUnit, layout.unitFile)

	if joining {
		if err := i.joinCluster(ctx, logger, c, layout); err != nil {
			return Context{}, err
		}
	}

	if settings.Etcd.StartService {
		if err := i.runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
			return Context{}, err
		}
		if err := i.runner.Run(ctx, "systemctl", "enable", "--now", etcdUnitName); err != nil {
			return Context{}, err
		}
		logger.Info().Msg("etcd service started")
	}

	return c, nil
}

// unpackEtcd extracts the release archive into a scratch directory, keeps
// the binaries and moves them into dir.
func (i *Installer) unpackEtcd(archive, dir string) error {
	staging, err := os.MkdirTemp(dir, ".unpack-")
	if err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to create staging directory")
	}
	defer os.RemoveAll(staging)

	if err := vendored.Unpack(i.archives, archive, staging); err != nil {
		return err
	}
	if err := fsutil.Flatten(staging, etcdArtifacts); err != nil {
		return err
	}

	for _, name := range etcdArtifacts {
		src := filepath.Join(staging, name)
		if _, err := os.Stat(src); err != nil {
			return fault.Wrap(fault.UnpackArchive, err, "archive "+archive+" does not contain "+name)
		}
		if err := fsutil.Move(src, dir); err != nil {
			return err
		}
	}
	return nil
}

// issueEtcdCertificates issues the peer certificate and then the client
// certificate, both bound to the node's hostname and bind address.
func issueEtcdCertificates(logger zerolog.Logger, c Context, layout etcdLayout) (Context, error) {
	settings := c.Settings

	if err := os.MkdirAll(layout.certsDir, 0o700); err != nil {
		return Context{}, fault.Wrap(fault.FileIO, err, "failed to create certs directory")
	}

	leaves := []struct {
		commonName string
		keyPath    string
		certPath   string
		keyKey     string
		certKey    string
	}{
		{settings.NodeName, layout.peerKey, layout.peerCert, ArtifactEtcdPeerKey, ArtifactEtcdPeerCert},
		{settings.NodeName + "-client", layout.clientKey, layout.clientCert, ArtifactEtcdClientKey, ArtifactEtcdClientCert},
	}

	for _, leaf := range leaves {
		pair, err := pki.IssueCertificate(settings.Profile(), c.CA, pki.LeafRequest{
			CommonName:   leaf.commonName,
			ExpiryInDays: settings.Etcd.CertExpiryInDays,
			DNSNames:     []string{settings.Hostname},
			IPAddresses:  []string{settings.BindAddress},
		})
		if err != nil {
			return Context{}, err
		}
		if err := pki.SaveKeyCertPair(pair, leaf.keyPath, leaf.certPath); err != nil {
			return Context{}, err
		}

		logger.Info().
			Str("common_name", leaf.commonName).
			Str("path_cert", leaf.certPath).
			Msg("issued certificate")

		c = c.WithArtifact(leaf.keyKey, leaf.keyPath).WithArtifact(leaf.certKey, leaf.certPath)
	}

	return c, nil
}

func (i *Installer) renderEtcdFiles(settings *config.Settings, layout etcdLayout, joining bool) error {
	_, caCert := CAPaths(settings.InstallationDir)

	state := "new"
	if joining {
		state = "existing"
	}

	err := i.renderer.RenderToFile(templates.EtcdEnv, templates.EtcdEnvData{
		Name:                settings.NodeName,
		DataDir:             layout.dataDir,
		PeerURL:             settings.PeerURL(),
		ClientURL:           settings.ClientURL(),
		InitialCluster:      settings.Etcd.InitialCluster,
		InitialClusterState: state,
		InitialClusterToken: settings.Etcd.InitialClusterToken,
		CACertFile:          caCert,
		ClientCertFile:      layout.clientCert,
		ClientKeyFile:       layout.clientKey,
		PeerCertFile:        layout.peerCert,
		PeerKeyFile:         layout.peerKey,
	}, layout.envFile, 0o644)
	if err != nil {
		return err
	}

	return i.renderer.RenderToFile(templates.EtcdService, templates.EtcdServiceData{
		EnvFilePath:     layout.envFile,
		ExecFilePath:    layout.binary,
		InstallationDir: layout.dir,
		RestartSec:      settings.Etcd.RestartSec,
	}, layout.unitFile, 0o644)
}

// joinCluster registers this node with an existing cluster, retrying while
// the cluster is unreachable.
func (i *Installer) joinCluster(ctx context.Context, logger zerolog.Logger, c Context, layout etcdLayout) error {
	settings := c.Settings
	caCert, _ := c.Artifact(ArtifactCACert)

	args := []string{
		"--endpoints", strings.Join(settings.Etcd.JoinEndpoints, ","),
		"--cacert", caCert,
		"--cert", layout.clientCert,
		"--key", layout.clientKey,
		"member", "add", settings.NodeName,
		"--peer-urls", settings.PeerURL(),
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, i.runner.Run(ctx, layout.etcdctl, args...)
	},
		backoff.WithBackOff(i.backOff()),
		backoff.WithMaxTries(max(settings.Etcd.JoinRetries, 1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("next_retry", next).Msg("failed to join etcd cluster, will retry")
		}),
	)
	if err != nil {
		if fault.KindOf(err) == fault.Other {
			err = fault.Wrap(fault.ServiceManager, err, "failed to join etcd cluster")
		}
		return err
	}

	logger.Info().Strs("endpoints", settings.Etcd.JoinEndpoints).Msg("joined etcd cluster")
	return nil
}
