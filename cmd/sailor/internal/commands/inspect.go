package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wolfeidau/sailor/internal/pki"
)

// InspectCmd prints the validity of a PEM certificate.
type InspectCmd struct {
	Path      string `arg:"" help:"Certificate to inspect" type:"path"`
	Threshold int    `help:"Flag the certificate for rotation when it expires within this many days" default:"30"`

	out io.Writer `kong:"-"`
}

func (c *InspectCmd) Run(ctx context.Context, globals *Globals) error {
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	v, err := pki.Inspect(c.Path, time.Duration(c.Threshold)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to inspect certificate: %w", err)
	}

	if !v.Exists {
		fmt.Fprintf(out, "%s: not found\n", v.Path)
		return nil
	}

	fmt.Fprintf(out, "Path:       %s\n", v.Path)
	fmt.Fprintf(out, "Subject:    %s\n", v.Subject)
	fmt.Fprintf(out, "Issuer:     %s\n", v.Issuer)
	fmt.Fprintf(out, "Serial:     %s\n", v.Serial)
	fmt.Fprintf(out, "Not before: %s\n", v.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(out, "Not after:  %s\n", v.NotAfter.Format(time.RFC3339))

	switch {
	case v.Expired:
		fmt.Fprintln(out, "Status:     EXPIRED")
	case v.ShouldRotate:
		fmt.Fprintf(out, "Status:     ROTATE (%d days remaining)\n", v.DaysRemaining)
	default:
		fmt.Fprintf(out, "Status:     OK (%d days remaining)\n", v.DaysRemaining)
	}

	fmt.Fprintln(out, "Extensions:")
	for _, ext := range v.Extensions {
		critical := ""
		if ext.Critical {
			critical = " (critical)"
		}
		fmt.Fprintf(out, "  %s%s\n", ext.Name, critical)
	}

	return nil
}
