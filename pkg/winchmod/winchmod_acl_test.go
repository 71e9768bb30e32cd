package winchmod

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSID builds a domain-account style SID from a relative id.
func testSID(rid uint32) SID {
	s := SID{1, 5, 0, 0, 0, 0, 0, 5, 21, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	s = append(s, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(s[len(s)-4:], rid)
	return s
}

func TestAccessMasksForMode(t *testing.T) {
	tests := []struct {
		name string
		mask uint16
		want classAccess
	}{
		{
			name: "0644 needs no denies",
			mask: 0o644,
			want: classAccess{
				ownerAllow: rightsBase | rightsOwner | rightsRead | rightsWrite,
				groupAllow: rightsBase | rightsRead,
				otherAllow: rightsBase | rightsRead,
			},
		},
		{
			name: "0460 denies owner write",
			mask: 0o460,
			want: classAccess{
				ownerAllow: rightsBase | rightsOwner | rightsRead,
				ownerDeny:  rightsWrite,
				groupAllow: rightsBase | rightsRead | rightsWrite,
				otherAllow: rightsBase,
			},
		},
		{
			name: "0046 shields both narrower classes",
			mask: 0o046,
			want: classAccess{
				ownerAllow: rightsBase | rightsOwner,
				ownerDeny:  rightsRead | rightsWrite,
				groupAllow: rightsBase | rightsRead,
				groupDeny:  rightsWrite,
				otherAllow: rightsBase | rightsRead | rightsWrite,
			},
		},
		{
			name: "0000 grants only the baseline",
			mask: 0,
			want: classAccess{
				ownerAllow: rightsBase | rightsOwner,
				groupAllow: rightsBase,
				otherAllow: rightsBase,
			},
		},
		{
			name: "0777 grants everything everywhere",
			mask: 0o777,
			want: classAccess{
				ownerAllow: rightsBase | rightsOwner | rightsRead | rightsWrite | rightsExec,
				groupAllow: rightsBase | rightsRead | rightsWrite | rightsExec,
				otherAllow: rightsBase | rightsRead | rightsWrite | rightsExec,
			},
		},
		{
			name: "0007 denies owner and group everything",
			mask: 0o007,
			want: classAccess{
				ownerAllow: rightsBase | rightsOwner,
				ownerDeny:  rightsRead | rightsWrite | rightsExec,
				groupAllow: rightsBase,
				groupDeny:  rightsRead | rightsWrite | rightsExec,
				otherAllow: rightsBase | rightsRead | rightsWrite | rightsExec,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accessMasksForMode(tt.mask))
		})
	}
}

// A class is denied a right exactly when it lacks the mode bit while a broader
// class holds it. Checked across every 9-bit mode.
func TestAccessMasksDenyLaw(t *testing.T) {
	for mask := uint16(0); mask <= 0o777; mask++ {
		ca := accessMasksForMode(mask)
		rights := []struct {
			right   uint32
			u, g, o bool
		}{
			{rightsRead, mask&0o400 != 0, mask&0o040 != 0, mask&0o004 != 0},
			{rightsWrite, mask&0o200 != 0, mask&0o020 != 0, mask&0o002 != 0},
			{rightsExec, mask&0o100 != 0, mask&0o010 != 0, mask&0o001 != 0},
		}
		for _, r := range rights {
			assert.Equal(t, !r.u && (r.g || r.o), ca.ownerDeny&r.right == r.right, "mode %04o owner deny", mask)
			assert.Equal(t, !r.g && r.o, ca.groupDeny&r.right == r.right, "mode %04o group deny", mask)
			assert.Equal(t, r.u, ca.ownerAllow&r.right == r.right, "mode %04o owner allow", mask)
			assert.Equal(t, r.g, ca.groupAllow&r.right == r.right, "mode %04o group allow", mask)
			assert.Equal(t, r.o, ca.otherAllow&r.right == r.right, "mode %04o other allow", mask)
		}
	}
}

func TestSIDString(t *testing.T) {
	assert.Equal(t, "S-1-1-0", EveryoneSID().String())
	assert.Equal(t, "S-1-5-21-1-2-3-1001", testSID(1001).String())
	assert.Equal(t, "<malformed sid, 3 bytes>", SID{1, 5, 0}.String())
}

// parsedACE is an access-control entry decoded back out of the serialized list.
type parsedACE struct {
	aceType byte
	mask    uint32
	sid     string
}

func parseACL(t *testing.T, buf []byte) []parsedACE {
	t.Helper()
	require.GreaterOrEqual(t, len(buf), aclHeaderSize)
	require.Equal(t, byte(aclRevision), buf[0])
	require.Equal(t, len(buf), int(binary.LittleEndian.Uint16(buf[2:])))

	count := int(binary.LittleEndian.Uint16(buf[4:]))
	var aces []parsedACE
	off := aclHeaderSize
	for i := 0; i < count; i++ {
		size := int(binary.LittleEndian.Uint16(buf[off+2:]))
		sid := SID(buf[off+aceHeaderSize : off+size])
		require.True(t, sid.valid())
		aces = append(aces, parsedACE{
			aceType: buf[off],
			mask:    binary.LittleEndian.Uint32(buf[off+4:]),
			sid:     sid.String(),
		})
		off += size
	}
	require.Equal(t, len(buf), off)
	return aces
}

func TestSynthesizeDACLAllowOnly(t *testing.T) {
	owner, group := testSID(1001), testSID(513)

	buf, err := SynthesizeDACL(0o644, owner, group)
	require.NoError(t, err)

	// 8-byte header plus three allow entries, two 28-byte SIDs and the
	// 12-byte world SID.
	assert.Len(t, buf, 8+(8+28)+(8+28)+(8+12))
	assert.Equal(t, []parsedACE{
		{aceType: aceTypeAccessAllowed, mask: rightsBase | rightsOwner | rightsRead | rightsWrite, sid: owner.String()},
		{aceType: aceTypeAccessAllowed, mask: rightsBase | rightsRead, sid: group.String()},
		{aceType: aceTypeAccessAllowed, mask: rightsBase | rightsRead, sid: "S-1-1-0"},
	}, parseACL(t, buf))
}

func TestSynthesizeDACLDenyOrdering(t *testing.T) {
	owner, group := testSID(1001), testSID(513)

	buf, err := SynthesizeDACL(0o046, owner, group)
	require.NoError(t, err)

	assert.Equal(t, []parsedACE{
		{aceType: aceTypeAccessDenied, mask: rightsRead | rightsWrite, sid: owner.String()},
		{aceType: aceTypeAccessAllowed, mask: rightsBase | rightsOwner, sid: owner.String()},
		{aceType: aceTypeAccessDenied, mask: rightsWrite, sid: group.String()},
		{aceType: aceTypeAccessAllowed, mask: rightsBase | rightsRead, sid: group.String()},
		{aceType: aceTypeAccessAllowed, mask: rightsBase | rightsRead | rightsWrite, sid: "S-1-1-0"},
	}, parseACL(t, buf))
}

func TestSynthesizeDACLMalformedSID(t *testing.T) {
	_, err := SynthesizeDACL(0o644, SID{1, 5}, testSID(513))
	require.Error(t, err)
	var buildErr *ErrACLBuild
	assert.ErrorAs(t, err, &buildErr)
}

func TestACLBuilderSizeLimit(t *testing.T) {
	b := &aclBuilder{}
	for i := 0; i < 4000; i++ {
		b.Allow(EveryoneSID(), rightsBase)
	}
	_, err := b.Finalize()
	require.Error(t, err)
	var buildErr *ErrACLBuild
	assert.ErrorAs(t, err, &buildErr)
}
