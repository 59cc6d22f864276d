package install

import (
	"github.com/wolfeidau/sailor/internal/fault"
	"github.com/wolfeidau/sailor/internal/netutil"
)

func validateStep(c Context) (Context, error) {
	if c.Settings == nil {
		return Context{}, fault.New(fault.Config, "settings not loaded")
	}
	if err := c.Settings.Validate(); err != nil {
		return Context{}, err
	}
	if err := netutil.ValidateBindAddress(c.Settings.BindIP()); err != nil {
		return Context{}, err
	}
	return c, nil
}
