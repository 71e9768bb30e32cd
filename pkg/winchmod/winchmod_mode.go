package winchmod

// Who selectors address the three permission classes of a 9-bit Unix mode.
// Each selector covers the rwx triple of its class, so they double as bit
// masks over the mode value itself.
const (
	WhoNone  uint16 = 0
	WhoOther uint16 = 0o007
	WhoGroup uint16 = 0o070
	WhoUser  uint16 = 0o700
	WhoAll          = WhoUser | WhoGroup | WhoOther
)

// ModeOp is the operator of a symbolic mode clause.
type ModeOp byte

const (
	OpNone   ModeOp = iota
	OpAdd           // '+'
	OpRemove        // '-'
	OpSet           // '='
)

// Permission letters of a symbolic clause. PermCondX is the conditional
// execute letter 'X', which grants execute only to directories and to objects
// that already carry an execute bit somewhere.
const (
	PermNone  uint8 = 0
	PermRead  uint8 = 1 << 0
	PermWrite uint8 = 1 << 1
	PermExec  uint8 = 1 << 2
	PermCondX uint8 = 1 << 3
)

// ChangeAction is one finalized clause of a symbolic mode expression.
// Actions are ordered; each one sees the mode produced by the previous one.
type ChangeAction struct {
	Who  uint16 // class selectors, WhoAll when the clause named none
	Op   ModeOp
	Perm uint8  // literal permission letters
	Ref  uint16 // reference class (WhoUser/WhoGroup/WhoOther), WhoNone if absent
}

// ModeSpec is the parsed form of a chmod mode expression. It is either an
// absolute octal mask or an ordered list of change actions, never both.
type ModeSpec struct {
	Octal   bool
	Mask    uint16
	Actions []ChangeAction
}

// PermState is the 9-bit permission mode of one filesystem object plus the
// out-of-band directory flag consulted by the 'X' rule.
type PermState struct {
	Bits  uint16
	IsDir bool
}
