//go:build windows

package winchmod

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unsafe"

	aclapi "github.com/hectane/go-acl/api"
	"golang.org/x/sys/windows"
)

var (
	advapi32             = windows.NewLazySystemDLL("advapi32.dll")
	procSetFileSecurityW = advapi32.NewProc("SetFileSecurityW")
)

// winOps implements FileOps on top of the Windows security API.
type winOps struct {
	names *accountCache
}

// NewNativeOps returns the default FileOps for this platform.
func NewNativeOps() FileOps {
	return &winOps{names: newAccountCache()}
}

// NormalizePath makes the path absolute and applies the extended-length
// prefix so that operations are not limited to MAX_PATH characters.
func (w *winOps) NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(abs, `\\`) {
		// UNC and already-prefixed paths are left alone.
		return abs, nil
	}
	return `\\?\` + abs, nil
}

func (w *winOps) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (w *winOps) ReadDir(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		fi, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, fi)
	}
	return infos, nil
}

// objectSecurity reads the owner, group and current DACL of one object.
func (w *winOps) objectSecurity(path string) (owner, group *windows.SID, dacl *windows.ACL, err error) {
	sd, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.OWNER_SECURITY_INFORMATION|windows.GROUP_SECURITY_INFORMATION|windows.DACL_SECURITY_INFORMATION,
	)
	if err != nil {
		return nil, nil, nil, err
	}
	if owner, _, err = sd.Owner(); err != nil {
		return nil, nil, nil, err
	}
	if group, _, err = sd.Group(); err != nil {
		return nil, nil, nil, err
	}
	// A nil DACL is legal and means "everything allowed".
	if dacl, _, err = sd.DACL(); err != nil {
		return nil, nil, nil, err
	}
	return owner, group, dacl, nil
}

func wellKnownWorldSid() (*windows.SID, error) {
	var raw [aclapi.SECURITY_MAX_SID_SIZE]byte
	sid := (*windows.SID)(unsafe.Pointer(&raw[0]))
	sidLen := uint32(len(raw))
	if err := aclapi.CreateWellKnownSid(aclapi.WinWorldSid, nil, sid, &sidLen); err != nil {
		return nil, fmt.Errorf("failed to create Everyone SID: %v", err)
	}
	return sid, nil
}

// sidBytes copies a native SID into the portable representation. The length
// is derived from the sub-authority count in the structure itself.
func sidBytes(sid *windows.SID) SID {
	if sid == nil {
		return nil
	}
	n := 8 + 4*int(*(*byte)(unsafe.Add(unsafe.Pointer(sid), 1)))
	out := make(SID, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(sid)), n))
	return out
}

// daclRights accumulates the allow and deny masks of every entry whose
// principal matches.
func daclRights(dacl *windows.ACL, match func(*windows.SID) bool) (allow, deny uint32) {
	if dacl == nil {
		return ^uint32(0), 0
	}
	hdr := (*[aclHeaderSize]byte)(unsafe.Pointer(dacl))
	count := uint32(hdr[4]) | uint32(hdr[5])<<8
	for i := uint32(0); i < count; i++ {
		var ace *windows.ACCESS_ALLOWED_ACE
		if err := windows.GetAce(dacl, i, &ace); err != nil {
			continue
		}
		sid := (*windows.SID)(unsafe.Pointer(uintptr(unsafe.Pointer(ace)) + unsafe.Offsetof(ace.SidStart)))
		if !match(sid) {
			continue
		}
		switch ace.Header.AceType {
		case windows.ACCESS_ALLOWED_ACE_TYPE:
			allow |= uint32(ace.Mask)
		case windows.ACCESS_DENIED_ACE_TYPE:
			deny |= uint32(ace.Mask)
		}
	}
	return allow, deny
}

// Mode derives the object's 9-bit Unix mode from its DACL: for each class the
// effective rights are the union of its own and the Everyone entries, minus
// any denies for the same principals.
func (w *winOps) Mode(path string) (uint16, error) {
	owner, group, dacl, err := w.objectSecurity(path)
	if err != nil {
		return 0, &ErrLookupFailed{Path: path, Op: "GetNamedSecurityInfo", Err: err}
	}
	everyone, err := wellKnownWorldSid()
	if err != nil {
		return 0, &ErrLookupFailed{Path: path, Op: "CreateWellKnownSid", Err: err}
	}

	classes := []struct {
		sid   *windows.SID
		shift uint
	}{
		{owner, 6},
		{group, 3},
		{everyone, 0},
	}
	var mode uint16
	for _, class := range classes {
		allow, deny := daclRights(dacl, func(sid *windows.SID) bool {
			return windows.EqualSid(sid, class.sid) || windows.EqualSid(sid, everyone)
		})
		effective := allow &^ deny
		var triple uint16
		if effective&rightFileReadData != 0 {
			triple |= 0o4
		}
		if effective&rightFileWriteData != 0 {
			triple |= 0o2
		}
		if effective&rightFileExecute != 0 {
			triple |= 0o1
		}
		mode |= triple << class.shift
	}
	return mode, nil
}

func (w *winOps) Owner(path string) (string, string, error) {
	owner, group, _, err := w.objectSecurity(path)
	if err != nil {
		return "", "", &ErrLookupFailed{Path: path, Op: "GetNamedSecurityInfo", Err: err}
	}
	lookup := func(sid *windows.SID) (string, error) {
		return w.names.lookup(sid.String(), func(string) (string, error) {
			account, domain, _, err := sid.LookupAccount("")
			if err != nil {
				return "", err
			}
			if domain == "" {
				return account, nil
			}
			return domain + `\` + account, nil
		})
	}
	ownerName, err := lookup(owner)
	if err != nil {
		return "", "", err
	}
	groupName, err := lookup(group)
	if err != nil {
		return ownerName, "", err
	}
	return ownerName, groupName, nil
}

// ApplyMask synthesizes the new DACL for the mask and writes it with
// SetFileSecurity. SetNamedSecurityInfo is deliberately avoided: without
// PROTECTED_DACL_SECURITY_INFORMATION it would merge inheritable entries from
// the parent into the object, and with it the object's children would lose
// the entries they inherit from the object. SetFileSecurity does neither.
func (w *winOps) ApplyMask(path string, mask uint16, isDir bool) error {
	owner, group, _, err := w.objectSecurity(path)
	if err != nil {
		return &ErrLookupFailed{Path: path, Op: "GetNamedSecurityInfo", Err: err}
	}

	dacl, err := SynthesizeDACL(mask, sidBytes(owner), sidBytes(group))
	if err != nil {
		return err
	}

	sd, err := windows.NewSecurityDescriptor()
	if err != nil {
		return &ErrApplyFailed{Path: path, Op: "NewSecurityDescriptor", Err: err}
	}
	if err := sd.SetDACL((*windows.ACL)(unsafe.Pointer(&dacl[0])), true, false); err != nil {
		return &ErrApplyFailed{Path: path, Op: "SetSecurityDescriptorDacl", Err: err}
	}

	pathp, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return &ErrApplyFailed{Path: path, Op: "SetFileSecurity", Err: err}
	}
	r1, _, callErr := procSetFileSecurityW.Call(
		uintptr(unsafe.Pointer(pathp)),
		uintptr(windows.DACL_SECURITY_INFORMATION),
		uintptr(unsafe.Pointer(sd)),
	)
	runtime.KeepAlive(dacl)
	runtime.KeepAlive(sd)
	if r1 == 0 {
		return &ErrApplyFailed{Path: path, Op: "SetFileSecurity", Err: callErr}
	}
	return nil
}
