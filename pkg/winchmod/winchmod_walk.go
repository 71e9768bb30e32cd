package winchmod

// ApplyRecursive applies the mode change to a whole tree, children before
// their directory. Post-order matters: a change that removes traversal rights
// from a directory must not cut off the walk into it. A failing child aborts
// its subtree before the parent directory is touched; siblings that already
// completed are not rolled back.
func (c *Changer) ApplyRecursive(path string, spec *ModeSpec) error {
	path, err := c.Ops.NormalizePath(path)
	if err != nil {
		return &ErrLookupFailed{Path: path, Op: "normalize path", Err: err}
	}
	return c.walk(path, spec)
}

func (c *Changer) walk(path string, spec *ModeSpec) error {
	fi, err := c.Ops.Stat(path)
	if err != nil {
		return &ErrLookupFailed{Path: path, Op: "stat", Err: err}
	}
	if !fi.IsDir() {
		return c.applyTo(path, spec, false)
	}

	children, err := c.Ops.ReadDir(path)
	if err != nil {
		return &ErrLookupFailed{Path: path, Op: "read directory", Err: err}
	}
	for _, child := range children {
		if err := c.walk(c.join(path, child.Name()), spec); err != nil {
			return err
		}
	}
	return c.applyTo(path, spec, true)
}
