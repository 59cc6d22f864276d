package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/sailor/internal/config"
	"github.com/wolfeidau/sailor/internal/install"
	"github.com/wolfeidau/sailor/internal/logger"
	"github.com/wolfeidau/sailor/internal/runner"
	"github.com/wolfeidau/sailor/internal/templates"
)

// InstallCmd provisions the host: validates settings, resolves the CA and
// installs etcd.
type InstallCmd struct {
	Config   string `help:"Path to the YAML settings file" type:"path" env:"SAILOR_CONFIG"`
	CAKey    string `name:"ca-key" help:"Custom CA private key (PEM)" type:"path"`
	CACert   string `name:"ca-cert" help:"Custom CA certificate (PEM)" type:"path"`
	SkipEtcd bool   `help:"Only resolve the CA, do not install etcd" default:"false"`
}

func (c *InstallCmd) Run(ctx context.Context, globals *Globals) error {
	settings, err := config.Load(c.Config)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	log, closer, err := logger.Setup(globals.Debug || settings.Debug, settings.LogFile)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	log.Info().
		Str("version", globals.Version).
		Str("node", settings.NodeName).
		Str("bind_address", settings.BindAddress).
		Msg("starting install")

	renderer, err := templates.New()
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	installer := install.New(
		log,
		runner.NewProcess(log),
		renderer,
		os.DirFS(settings.VendoredDir),
	)

	result, err := installer.Run(ctx, install.NewContext(settings), install.DefaultSteps(c.CAKey, c.CACert, c.SkipEtcd)...)
	if err != nil {
		return err
	}

	if cert, ok := result.Artifact(install.ArtifactCACert); ok {
		fmt.Printf("CA certificate: %s\n", cert)
	}
	if unit, ok := result.Artifact(install.ArtifactEtcdUnit); ok {
		fmt.Printf("etcd unit: %s\n", unit)
	}

	return nil
}
