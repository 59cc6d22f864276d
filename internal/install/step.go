package install

import "fmt"

// Step describes a provisioning step. The Installer turns each description
// into a StepFunc when the run starts.
type Step interface {
	fmt.Stringer
	step()
}

// Validate checks the settings before anything is written.
type Validate struct{}

// ResolveCA loads the CA from KeyPath and CertPath when both are set and
// usable, otherwise generates a new one. Either way the CA is written under
// the installation directory.
type ResolveCA struct {
	KeyPath  string
	CertPath string
}

// IssueAndInstall issues the certificates for Service and installs it.
type IssueAndInstall struct {
	Service string
}

// ServiceEtcd is the only service sailor installs.
const ServiceEtcd = "etcd"

func (Validate) step()        {}
func (ResolveCA) step()       {}
func (IssueAndInstall) step() {}

func (Validate) String() string  { return "validate" }
func (ResolveCA) String() string { return "resolve_ca" }

func (s IssueAndInstall) String() string { return "install_" + s.Service }

// DefaultSteps is the standard provisioning run.
func DefaultSteps(caKeyPath, caCertPath string, skipEtcd bool) []Step {
	steps := []Step{
		Validate{},
		ResolveCA{KeyPath: caKeyPath, CertPath: caCertPath},
	}
	if !skipEtcd {
		steps = append(steps, IssueAndInstall{Service: ServiceEtcd})
	}
	return steps
}
