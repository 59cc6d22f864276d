// Package config loads the provisioning settings from a YAML file layered over
// built-in defaults, filling in the node identity from the host when unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"regexp"
	"slices"

	"github.com/google/uuid"
	"github.com/wolfeidau/sailor/internal/fault"
	"github.com/wolfeidau/sailor/internal/netutil"
	"github.com/wolfeidau/sailor/internal/pki"
	"gopkg.in/yaml.v3"
)

// nodeNamePattern allows alphanumeric chars, dash, underscore and dot. Node
// names end up in file names, certificate subjects and etcd member names.
var nodeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

type CASettings struct {
	CommonName   string `yaml:"common_name"`
	ExpiryInDays int    `yaml:"expiry_in_days"`
}

type PKISettings struct {
	RSASize            int        `yaml:"rsa_size"`
	CountryName        string     `yaml:"country_name"`
	Locality           string     `yaml:"locality"`
	Organization       string     `yaml:"organization"`
	OrganizationalUnit string     `yaml:"organizational_unit"`
	State              string     `yaml:"state"`
	EmailAddress       string     `yaml:"email_address"`
	CA                 CASettings `yaml:"ca"`
}

type EtcdSettings struct {
	Archive             string   `yaml:"archive"`
	ClientPort          int      `yaml:"client_port"`
	PeerPort            int      `yaml:"peer_port"`
	CertExpiryInDays    int      `yaml:"cert_expiry_in_days"`
	InitialClusterToken string   `yaml:"initial_cluster_token"`
	InitialCluster      []string `yaml:"initial_cluster"`
	JoinEndpoints       []string `yaml:"join_endpoints"`
	JoinRetries         uint     `yaml:"join_retries"`
	StartService        bool     `yaml:"start_service"`
	RestartSec          int      `yaml:"restart_sec"`
}

// Settings is the complete configuration of one provisioning run.
type Settings struct {
	Debug           bool         `yaml:"debug"`
	LogFile         string       `yaml:"log_file"`
	InstallationDir string       `yaml:"installation_dir"`
	BindAddress     string       `yaml:"bind_address"`
	NodeName        string       `yaml:"node_name"`
	Hostname        string       `yaml:"hostname"`
	VendoredDir     string       `yaml:"vendored_dir"`
	SystemdDir      string       `yaml:"systemd_dir"`
	PKI             PKISettings  `yaml:"pki"`
	Etcd            EtcdSettings `yaml:"etcd"`
}

// Default returns the built-in settings. Host derived values are left empty.
func Default() *Settings {
	return &Settings{
		InstallationDir: "/opt/sailor",
		VendoredDir:     "/opt/sailor/vendored",
		SystemdDir:      "/etc/systemd/system",
		PKI: PKISettings{
			RSASize:            2048,
			CountryName:        "US",
			Locality:           "San Francisco",
			Organization:       "Sailor",
			OrganizationalUnit: "Sailor",
			State:              "California",
			CA: CASettings{
				CommonName:   "Sailor CA",
				ExpiryInDays: 3650,
			},
		},
		Etcd: EtcdSettings{
			Archive:          "etcd.tar.gz",
			ClientPort:       2379,
			PeerPort:         2380,
			CertExpiryInDays: 365,
			JoinRetries:      5,
			StartService:     true,
			RestartSec:       10,
		},
	}
}

// Detector supplies host derived defaults.
type Detector struct {
	Hostname func() (string, error)
	IP       func() (net.IP, error)
}

// HostDetector inspects the running host.
var HostDetector = Detector{
	Hostname: netutil.GuessHostname,
	IP:       netutil.GuessIP,
}

// Load reads path over the defaults and fills in host derived values. An
// empty path uses the defaults alone.
func Load(path string) (*Settings, error) {
	return LoadWith(path, HostDetector)
}

// LoadWith is Load with an explicit detector.
func LoadWith(path string, detect Detector) (*Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fault.Newf(fault.Config, "config file %s does not exist", path)
		}
		if err != nil {
			return nil, fault.Wrap(fault.Config, err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fault.Wrap(fault.Config, err, "failed to parse YAML config")
		}
	}

	if err := settings.applyDetected(detect); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

func (s *Settings) applyDetected(detect Detector) error {
	if s.Hostname == "" {
		hostname, err := detect.Hostname()
		if err != nil {
			return fault.Wrap(fault.Config, err, "hostname not set and could not be detected")
		}
		s.Hostname = hostname
	}

	if s.BindAddress == "" {
		ip, err := detect.IP()
		if err != nil {
			return fault.Wrap(fault.Config, err, "bind_address not set and could not be detected")
		}
		s.BindAddress = ip.String()
	}

	if s.NodeName == "" {
		s.NodeName = s.Hostname
	}

	if s.Etcd.InitialClusterToken == "" {
		s.Etcd.InitialClusterToken = "sailor-" + uuid.NewString()
	}

	if len(s.Etcd.InitialCluster) == 0 && s.BindIP() != nil {
		s.Etcd.InitialCluster = []string{s.PeerMember()}
	}

	return nil
}

// Validate checks the settings for values provisioning cannot work with.
func (s *Settings) Validate() error {
	if s.InstallationDir == "" {
		return fault.New(fault.Config, "installation_dir must be set")
	}
	if s.BindIP() == nil {
		return fault.Newf(fault.Config, "bind_address %q is not an IP address", s.BindAddress)
	}
	if !nodeNamePattern.MatchString(s.NodeName) {
		return fault.Newf(fault.Config, "node_name %q must contain only alphanumeric, dash, underscore or dot", s.NodeName)
	}
	if err := s.Profile().Validate(); err != nil {
		return err
	}
	if s.Etcd.CertExpiryInDays <= 0 {
		return fault.Newf(fault.Config, "etcd cert_expiry_in_days must be positive, got %d", s.Etcd.CertExpiryInDays)
	}
	if !validPort(s.Etcd.ClientPort) || !validPort(s.Etcd.PeerPort) {
		return fault.Newf(fault.Config, "etcd ports must be within 1..65535, got %d and %d", s.Etcd.ClientPort, s.Etcd.PeerPort)
	}
	if s.Etcd.ClientPort == s.Etcd.PeerPort {
		return fault.New(fault.Config, "etcd client_port and peer_port must differ")
	}
	if s.Etcd.RestartSec <= 0 {
		return fault.Newf(fault.Config, "etcd restart_sec must be positive, got %d", s.Etcd.RestartSec)
	}
	if len(s.Etcd.JoinEndpoints) > 0 {
		// a member joining with state "existing" must be started with the full member list
		if !slices.Contains(s.Etcd.InitialCluster, s.PeerMember()) {
			return fault.Newf(fault.Config, "etcd initial_cluster must contain %q when joining", s.PeerMember())
		}
		if len(s.Etcd.InitialCluster) < 2 {
			return fault.New(fault.Config, "etcd initial_cluster must list the existing members when joining")
		}
	}
	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// BindIP returns the parsed bind address, or nil when it does not parse.
func (s *Settings) BindIP() net.IP {
	return net.ParseIP(s.BindAddress)
}

// PeerMember returns this node's entry for an etcd initial cluster list.
func (s *Settings) PeerMember() string {
	return fmt.Sprintf("%s=%s", s.NodeName, s.PeerURL())
}

// PeerURL is the URL other members use to reach this node.
func (s *Settings) PeerURL() string {
	return fmt.Sprintf("https://%s", net.JoinHostPort(s.BindAddress, fmt.Sprint(s.Etcd.PeerPort)))
}

// ClientURL is the URL clients use to reach this node.
func (s *Settings) ClientURL() string {
	return fmt.Sprintf("https://%s", net.JoinHostPort(s.BindAddress, fmt.Sprint(s.Etcd.ClientPort)))
}

// Profile returns the PKI settings in the form the certificate code uses.
func (s *Settings) Profile() pki.Profile {
	return pki.Profile{
		RSASize: s.PKI.RSASize,
		Subject: pki.SubjectAttributes{
			Country:            s.PKI.CountryName,
			Locality:           s.PKI.Locality,
			Organization:       s.PKI.Organization,
			OrganizationalUnit: s.PKI.OrganizationalUnit,
			State:              s.PKI.State,
			Email:              s.PKI.EmailAddress,
		},
		CA: pki.CAProfile{
			CommonName:   s.PKI.CA.CommonName,
			ExpiryInDays: s.PKI.CA.ExpiryInDays,
		},
	}
}
