package winchmod

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Windows access rights used by the DACL synthesis. They are defined locally
// rather than imported from golang.org/x/sys/windows so that the synthesis
// stays buildable and testable on every platform.
const (
	rightDelete          uint32 = 0x00010000
	rightReadControl     uint32 = 0x00020000
	rightWriteDAC        uint32 = 0x00040000
	rightWriteOwner      uint32 = 0x00080000
	rightSynchronize     uint32 = 0x00100000
	rightFileReadData    uint32 = 0x0001
	rightFileWriteData   uint32 = 0x0002
	rightFileAppendData  uint32 = 0x0004
	rightFileReadEA      uint32 = 0x0008
	rightFileWriteEA     uint32 = 0x0010
	rightFileExecute     uint32 = 0x0020
	rightFileDeleteChild uint32 = 0x0040
	rightFileReadAttrs   uint32 = 0x0080
	rightFileWriteAttrs  uint32 = 0x0100
)

// Building blocks for the per-class access masks. Every principal gets the
// baseline (synchronize plus the rights needed to read its own permissions);
// the owner additionally keeps control of the object itself.
const (
	rightsBase  = rightSynchronize | rightReadControl | rightFileReadAttrs | rightFileReadEA
	rightsOwner = rightDelete | rightWriteDAC | rightWriteOwner | rightFileWriteAttrs
	rightsRead  = rightFileReadData
	rightsWrite = rightFileWriteData | rightFileAppendData | rightFileWriteEA | rightFileWriteAttrs | rightFileDeleteChild
	rightsExec  = rightFileExecute
)

// classAccess holds the access masks derived from one 9-bit Unix mode.
// A deny mask exists only to suppress rights that a broader class's allow
// entry would otherwise grant; "other" is the floor and never needs one.
type classAccess struct {
	ownerAllow uint32
	ownerDeny  uint32
	groupAllow uint32
	groupDeny  uint32
	otherAllow uint32
}

func accessMasksForMode(mask uint16) classAccess {
	ca := classAccess{
		ownerAllow: rightsBase | rightsOwner,
		groupAllow: rightsBase,
		otherAllow: rightsBase,
	}
	rights := []struct {
		right            uint32
		ubit, gbit, obit uint16
	}{
		{rightsRead, 0o400, 0o040, 0o004},
		{rightsWrite, 0o200, 0o020, 0o002},
		{rightsExec, 0o100, 0o010, 0o001},
	}
	for _, r := range rights {
		u := mask&r.ubit != 0
		g := mask&r.gbit != 0
		o := mask&r.obit != 0
		if u {
			ca.ownerAllow |= r.right
		} else if g || o {
			ca.ownerDeny |= r.right
		}
		if g {
			ca.groupAllow |= r.right
		} else if o {
			ca.groupDeny |= r.right
		}
		if o {
			ca.otherAllow |= r.right
		}
	}
	return ca
}

// SID is a security identifier in its native binary layout: revision byte,
// sub-authority count, 6-byte big-endian authority, then little-endian 32-bit
// sub-authorities.
type SID []byte

func (s SID) valid() bool {
	return len(s) >= 8 && len(s) == 8+4*int(s[1])
}

// String renders the textual S-R-I-S... form for diagnostics.
func (s SID) String() string {
	if !s.valid() {
		return fmt.Sprintf("<malformed sid, %d bytes>", len(s))
	}
	var auth uint64
	for _, b := range s[2:8] {
		auth = auth<<8 | uint64(b)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "S-%d-%d", s[0], auth)
	for i := 0; i < int(s[1]); i++ {
		fmt.Fprintf(&b, "-%d", binary.LittleEndian.Uint32(s[8+4*i:]))
	}
	return b.String()
}

// EveryoneSID returns the well-known world SID S-1-1-0.
func EveryoneSID() SID {
	return SID{1, 1, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}
}

// Binary layout constants of the native ACL structures.
const (
	aclRevision          = 2
	aclHeaderSize        = 8
	aceHeaderSize        = 8 // type, flags, size and the access mask
	aceTypeAccessAllowed = 0x0
	aceTypeAccessDenied  = 0x1
)

type aclEntry struct {
	aceType byte
	mask    uint32
	sid     SID
}

// aclBuilder accumulates logical access-control entries and serializes the
// complete list in one step; all buffer sizing lives in Finalize so the
// arithmetic can be tested without a filesystem object.
type aclBuilder struct {
	entries []aclEntry
}

func (b *aclBuilder) Allow(sid SID, mask uint32) {
	b.entries = append(b.entries, aclEntry{aceType: aceTypeAccessAllowed, mask: mask, sid: sid})
}

func (b *aclBuilder) Deny(sid SID, mask uint32) {
	b.entries = append(b.entries, aclEntry{aceType: aceTypeAccessDenied, mask: mask, sid: sid})
}

func (b *aclBuilder) Finalize() ([]byte, error) {
	size := aclHeaderSize
	for _, e := range b.entries {
		if !e.sid.valid() {
			return nil, &ErrACLBuild{Reason: fmt.Sprintf("malformed principal identity %s", e.sid)}
		}
		size += aceHeaderSize + len(e.sid)
	}
	if size > math.MaxUint16 {
		return nil, &ErrACLBuild{Reason: fmt.Sprintf("list of %d entries exceeds the native size limit", len(b.entries))}
	}

	buf := make([]byte, size)
	buf[0] = aclRevision
	binary.LittleEndian.PutUint16(buf[2:], uint16(size))
	binary.LittleEndian.PutUint16(buf[4:], uint16(len(b.entries)))

	off := aclHeaderSize
	for _, e := range b.entries {
		aceSize := aceHeaderSize + len(e.sid)
		buf[off] = e.aceType
		buf[off+1] = 0 // no inheritance flags
		binary.LittleEndian.PutUint16(buf[off+2:], uint16(aceSize))
		binary.LittleEndian.PutUint32(buf[off+4:], e.mask)
		copy(buf[off+aceHeaderSize:], e.sid)
		off += aceSize
	}
	return buf, nil
}

// SynthesizeDACL builds the complete discretionary access-control list for a
// 9-bit Unix mode. Entries are emitted deny before allow per principal, in
// owner, group, everyone order; a deny entry appears only when the class must
// be shielded from rights a broader class holds.
func SynthesizeDACL(mask uint16, owner, group SID) ([]byte, error) {
	ca := accessMasksForMode(mask)
	b := &aclBuilder{}
	if ca.ownerDeny != 0 {
		b.Deny(owner, ca.ownerDeny)
	}
	b.Allow(owner, ca.ownerAllow)
	if ca.groupDeny != 0 {
		b.Deny(group, ca.groupDeny)
	}
	b.Allow(group, ca.groupAllow)
	b.Allow(EveryoneSID(), ca.otherAllow)
	return b.Finalize()
}
