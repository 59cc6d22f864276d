package install

import (
	"maps"

	"github.com/wolfeidau/sailor/internal/config"
	"github.com/wolfeidau/sailor/internal/pki"
)

// Artifact keys recorded by the built-in steps.
const (
	ArtifactCAKey          = "ca_key"
	ArtifactCACert         = "ca_cert"
	ArtifactEtcdDir        = "etcd_dir"
	ArtifactEtcdPeerKey    = "etcd_peer_key"
	ArtifactEtcdPeerCert   = "etcd_peer_cert"
	ArtifactEtcdClientKey  = "etcd_client_key"
	ArtifactEtcdClientCert = "etcd_client_cert"
	ArtifactEtcdEnv        = "etcd_env"
	ArtifactEtcdUnit       = "etcd_unit"
)

// Context is the state handed from one step to the next. Steps receive it by
// value and return the context the next step should see.
type Context struct {
	// CA is nil until the CA has been resolved.
	CA       *pki.KeyCertPair
	Settings *config.Settings
	// Artifacts maps artifact keys to the paths written so far.
	Artifacts map[string]string
}

// NewContext returns the initial context for settings.
func NewContext(settings *config.Settings) Context {
	return Context{
		Settings:  settings,
		Artifacts: map[string]string{},
	}
}

// HasCA reports whether both halves of the CA are present.
func (c Context) HasCA() bool {
	return c.CA != nil && c.CA.Key != nil && c.CA.Cert != nil
}

// WithCA returns a copy of c carrying pair.
func (c Context) WithCA(pair *pki.KeyCertPair) Context {
	next := c.clone()
	next.CA = pair
	return next
}

// WithArtifact returns a copy of c with path recorded under key.
func (c Context) WithArtifact(key, path string) Context {
	next := c.clone()
	next.Artifacts[key] = path
	return next
}

// Artifact returns the path recorded under key.
func (c Context) Artifact(key string) (string, bool) {
	path, ok := c.Artifacts[key]
	return path, ok
}

func (c Context) clone() Context {
	next := c
	next.Artifacts = make(map[string]string, len(c.Artifacts)+1)
	maps.Copy(next.Artifacts, c.Artifacts)
	return next
}
