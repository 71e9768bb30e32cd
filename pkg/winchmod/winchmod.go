// Package winchmod emulates the POSIX chmod command on platforms whose native
// permission model is an access-control list rather than a bit mask. A mode
// expression (octal or symbolic) is parsed into a normalized form, resolved
// against the object's current permissions, and projected onto a freshly
// synthesized ACL for the owner, group and everyone principals.
package winchmod

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileOps is the narrow view of the platform the mode changer needs. The
// Windows implementation talks to the native security API; the portable one
// projects masks onto ordinary permission bits.
type FileOps interface {
	// NormalizePath converts a user-supplied path into the canonical form the
	// remaining operations expect (long-path conversion on Windows).
	NormalizePath(path string) (string, error)

	// Stat returns the object's metadata; only the directory flag is
	// interpreted here.
	Stat(path string) (os.FileInfo, error)

	// ReadDir lists a directory's children, excluding the self and parent
	// pseudo-entries.
	ReadDir(path string) ([]os.FileInfo, error)

	// Mode queries the object's current permissions as a 9-bit Unix mask.
	Mode(path string) (uint16, error)

	// Owner resolves the owning user and group to display names.
	Owner(path string) (user, group string, err error)

	// ApplyMask replaces the object's access control so that it grants
	// exactly the given 9-bit mask. The previous state survives intact if
	// the replacement fails at any step.
	ApplyMask(path string, mask uint16, isDir bool) error
}

// Changer applies parsed mode expressions to filesystem objects.
type Changer struct {
	Ops FileOps

	// Journal, when set, records every applied change.
	Journal *Journal

	Log *logrus.Logger
}

func NewChanger(ops FileOps) *Changer {
	return &Changer{Ops: ops, Log: logrus.StandardLogger()}
}

// Apply changes the mode of a single object. Directories are not descended
// into; use ApplyRecursive for that.
func (c *Changer) Apply(path string, spec *ModeSpec) error {
	path, err := c.Ops.NormalizePath(path)
	if err != nil {
		return &ErrLookupFailed{Path: path, Op: "normalize path", Err: err}
	}
	fi, err := c.Ops.Stat(path)
	if err != nil {
		return &ErrLookupFailed{Path: path, Op: "stat", Err: err}
	}
	return c.applyTo(path, spec, fi.IsDir())
}

// applyTo resolves the final mask for one object and writes it. The old mode
// is only queried when something needs it: the symbolic path always does, the
// octal path only when a journal is attached.
func (c *Changer) applyTo(path string, spec *ModeSpec, isDir bool) error {
	var (
		oldBits uint16
		mask    = spec.Mask
		err     error
	)
	switch {
	case !spec.Octal:
		oldBits, mask, err = resolveMask(c.Ops, path, spec.Actions)
		if err != nil {
			return err
		}
	case c.Journal != nil:
		oldBits, err = c.Ops.Mode(path)
		if err != nil {
			return &ErrLookupFailed{Path: path, Op: "query permissions", Err: err}
		}
	}

	c.Log.Debugf("applying mode %04o to %s", mask, path)
	if err := c.Ops.ApplyMask(path, mask, isDir); err != nil {
		return err
	}

	if c.Journal != nil {
		user, group, err := c.Ops.Owner(path)
		if err != nil {
			c.Log.Debugf("owner lookup failed for %s: %v", path, err)
		}
		if err := c.Journal.Record(path, oldBits, mask, user, group); err != nil {
			return err
		}
	}
	return nil
}

func (c *Changer) join(dir, name string) string {
	return filepath.Join(dir, name)
}
