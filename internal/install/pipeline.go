package install

// StepFunc is one provisioning step.
type StepFunc func(Context) (Context, error)

// Fold threads the context through steps in order. When initErr is set, or a
// step fails, the remaining steps are skipped and that error is returned
// unchanged. Files written by earlier steps are left in place.
func Fold(initial Context, initErr error, steps ...StepFunc) (Context, error) {
	if initErr != nil {
		return Context{}, initErr
	}

	c := initial
	for _, step := range steps {
		next, err := step(c)
		if err != nil {
			return Context{}, err
		}
		c = next
	}
	return c, nil
}
