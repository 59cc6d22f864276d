package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/sailor/cmd/sailor/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Install commands.InstallCmd `cmd:"" help:"Provision this host as a cluster node"`
		Inspect commands.InspectCmd `cmd:"" help:"Show the validity of a certificate"`
		Debug   bool                `help:"Enable debug mode."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("sailor"),
		kong.Description("Installs a TLS secured etcd node with its own certificate authority."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
