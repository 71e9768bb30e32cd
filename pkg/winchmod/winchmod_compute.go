package winchmod

// Replicated rwx triples used to build literal permission masks.
const (
	readBits  uint16 = 0o444
	writeBits uint16 = 0o222
	execBits  uint16 = 0o111
)

// computeMode applies a single change action to a permission state. It is a
// pure function; the directory flag is consulted by the 'X' rule but never
// modified.
func computeMode(old PermState, act ChangeAction) PermState {
	var mask uint16
	if act.Perm&PermRead != 0 {
		mask |= readBits
	}
	if act.Perm&PermWrite != 0 {
		mask |= writeBits
	}
	if act.Perm&PermExec != 0 {
		mask |= execBits
	}
	if act.Perm&PermCondX != 0 {
		// 'X' grants execute to directories unconditionally and to files that
		// already have at least one execute bit set, so "a+rX" on a tree does
		// not make plain files executable.
		if old.IsDir || old.Bits&execBits != 0 {
			mask |= execBits
		}
	}

	if act.Ref != WhoNone {
		ref := old.Bits & act.Ref
		switch act.Ref {
		case WhoUser:
			ref >>= 6
		case WhoGroup:
			ref >>= 3
		}
		// Replicate the referenced class's triple across all three classes;
		// the who selector below narrows it to the requested ones.
		mask |= ref * 0o111
	}

	mask &= act.Who

	out := old
	switch act.Op {
	case OpSet:
		// '=' replaces only the who-selected bits. Bits outside the who set
		// keep their old value, matching Unix chmod.
		out.Bits = old.Bits&^act.Who | mask
	case OpAdd:
		out.Bits = old.Bits | mask
	case OpRemove:
		out.Bits = old.Bits &^ mask
	}
	return out
}
