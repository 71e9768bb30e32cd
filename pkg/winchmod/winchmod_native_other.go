//go:build !windows

package winchmod

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"
)

// billyOps is the portable FileOps. There is no ACL to synthesize here; the
// 9-bit mask is projected straight onto the filesystem's own permission bits.
// Backed by osfs it serves non-Windows builds, backed by memfs it serves the
// tests.
type billyOps struct {
	fs    billy.Filesystem
	chmod func(path string, mode os.FileMode) error
	names *accountCache
}

// NewBillyOps wraps a billy filesystem. The chmod function is supplied
// separately because not every billy backend can change permissions.
func NewBillyOps(fs billy.Filesystem, chmod func(string, os.FileMode) error) FileOps {
	return &billyOps{fs: fs, chmod: chmod, names: newAccountCache()}
}

// NewNativeOps returns the default FileOps for this platform: the real
// filesystem rooted at /, with os.Chmod applying masks.
func NewNativeOps() FileOps {
	return NewBillyOps(osfs.New("/"), os.Chmod)
}

func (o *billyOps) NormalizePath(path string) (string, error) {
	return filepath.Abs(path)
}

func (o *billyOps) Stat(path string) (os.FileInfo, error) {
	return o.fs.Stat(path)
}

func (o *billyOps) ReadDir(path string) ([]os.FileInfo, error) {
	return o.fs.ReadDir(path)
}

func (o *billyOps) Mode(path string) (uint16, error) {
	fi, err := o.fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return uint16(fi.Mode().Perm()), nil
}

func (o *billyOps) Owner(path string) (string, string, error) {
	fi, err := o.fs.Stat(path)
	if err != nil {
		return "", "", err
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		// Backend keeps no ownership information (memfs).
		return "", "", nil
	}

	owner, err := o.names.lookup(fmt.Sprintf("u%d", st.Uid), func(string) (string, error) {
		u, err := user.LookupId(fmt.Sprint(st.Uid))
		if err != nil {
			return "", err
		}
		return u.Username, nil
	})
	if err != nil {
		return "", "", err
	}
	group, err := o.names.lookup(fmt.Sprintf("g%d", st.Gid), func(string) (string, error) {
		g, err := user.LookupGroupId(fmt.Sprint(st.Gid))
		if err != nil {
			return "", err
		}
		return g.Name, nil
	})
	if err != nil {
		return owner, "", err
	}
	return owner, group, nil
}

func (o *billyOps) ApplyMask(path string, mask uint16, isDir bool) error {
	if o.chmod == nil {
		return &ErrApplyFailed{Path: path, Op: "chmod", Err: os.ErrInvalid}
	}
	if err := o.chmod(path, os.FileMode(mask)); err != nil {
		return &ErrApplyFailed{Path: path, Op: "chmod", Err: err}
	}
	return nil
}
