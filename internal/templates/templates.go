// Package templates renders the service unit and configuration files written
// during provisioning.
package templates

import (
	"bytes"
	"embed"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/wolfeidau/sailor/internal/fault"
)

// Template names.
const (
	EtcdService = "etcd/etcd.service.tmpl"
	EtcdEnv     = "etcd/etcd.env.tmpl"
)

//go:embed etcd/*.tmpl
var files embed.FS

// EtcdServiceData fills EtcdService.
type EtcdServiceData struct {
	EnvFilePath     string
	ExecFilePath    string
	InstallationDir string
	RestartSec      int
}

// EtcdEnvData fills EtcdEnv.
type EtcdEnvData struct {
	Name                string
	DataDir             string
	PeerURL             string
	ClientURL           string
	InitialCluster      []string
	InitialClusterState string
	InitialClusterToken string
	CACertFile          string
	ClientCertFile      string
	ClientKeyFile       string
	PeerCertFile        string
	PeerKeyFile         string
}

// Renderer renders a named template with data.
type Renderer interface {
	Render(name string, data any) ([]byte, error)
	RenderToFile(name string, data any, dest string, mode os.FileMode) error
}

// Embedded renders the templates compiled into the binary.
type Embedded struct {
	tmpl *template.Template
}

var _ Renderer = (*Embedded)(nil)

// New parses every embedded template.
func New() (*Embedded, error) {
	tmpl, err := template.New("sailor").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(files, "etcd/*.tmpl")
	if err != nil {
		return nil, fault.Wrap(fault.TemplateRender, err, "failed to parse templates")
	}
	return &Embedded{tmpl: tmpl}, nil
}

// Render executes the template called name, which is the template's path
// relative to this package.
func (e *Embedded) Render(name string, data any) ([]byte, error) {
	t := e.tmpl.Lookup(path.Base(name))
	if t == nil {
		return nil, fault.Newf(fault.TemplateRender, "template %q not found", name)
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, data); err != nil {
		return nil, fault.Wrap(fault.TemplateRender, err, "failed to render "+name)
	}
	return buf.Bytes(), nil
}

// RenderToFile renders name and writes the result to dest, creating the
// parent directory when needed.
func (e *Embedded) RenderToFile(name string, data any, dest string, mode os.FileMode) error {
	out, err := e.Render(name, data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to create directory for "+dest)
	}
	if err := os.WriteFile(dest, out, mode); err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to write "+dest)
	}
	return nil
}
