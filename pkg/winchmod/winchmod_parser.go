package winchmod

import "strconv"

// ParseMode converts a chmod mode expression into a ModeSpec. The octal form
// is tried first; anything that is not a well-formed 3- or 4-digit octal mask
// falls through to the symbolic grammar:
//
//	mode   ::= clause (',' clause)*
//	clause ::= who* (op perm* | op ref)+
//	who    ::= 'a' | 'u' | 'g' | 'o'
//	op     ::= '+' | '-' | '='
//	perm   ::= 'r' | 'w' | 'x' | 'X'
//	ref    ::= 'u' | 'g' | 'o'
//
// A string that fails both grammars yields ErrMalformedMode.
func ParseMode(mode string) (*ModeSpec, error) {
	if mask, ok := parseOctalMode(mode); ok {
		return &ModeSpec{Octal: true, Mask: mask}, nil
	}
	actions, err := parseSymbolicMode(mode)
	if err != nil {
		return nil, err
	}
	return &ModeSpec{Actions: actions}, nil
}

// parseOctalMode accepts exactly 3 or 4 octal digits. The target platform has
// no setuid/setgid/sticky equivalent, so the leading digit of the 4-digit form
// is discarded and the remaining value must fit in 9 bits.
func parseOctalMode(s string) (uint16, bool) {
	if len(s) != 3 && len(s) != 4 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '7' {
			return 0, false
		}
	}
	digits := s
	if len(digits) == 4 {
		digits = digits[1:]
	}
	v, err := strconv.ParseUint(digits, 8, 16)
	if err != nil || v > 0o777 {
		return 0, false
	}
	return uint16(v), true
}

type parseState int

// The symbolic grammar is parsed by a five-state machine. States only move
// forward; the END state cycles back to WHO on a comma (or end of string) and
// to OP when an operator immediately follows a clause, which keeps the current
// who set alive for expressions like "u+r-w". WHO, PERM and REF are optional
// and fall through on any character they do not recognize; only OP and END
// can reject the string.
const (
	stateWho parseState = iota
	stateOp
	statePerm
	stateRef
	stateEnd
)

func parseSymbolicMode(mode string) ([]ChangeAction, error) {
	var (
		actions []ChangeAction
		act     ChangeAction
		state   = stateWho
	)
	n := len(mode)
	for i := 0; i <= n; {
		var c byte // NUL once past the end of the string
		if i < n {
			c = mode[i]
		}
		switch state {
		case stateWho:
			switch c {
			case 'a':
				act.Who |= WhoAll
				i++
			case 'u':
				act.Who |= WhoUser
				i++
			case 'g':
				act.Who |= WhoGroup
				i++
			case 'o':
				act.Who |= WhoOther
				i++
			default:
				state = stateOp
			}
		case stateOp:
			switch c {
			case '+':
				act.Op = OpAdd
			case '-':
				act.Op = OpRemove
			case '=':
				act.Op = OpSet
			default:
				return nil, &ErrMalformedMode{Mode: mode}
			}
			i++
			state = statePerm
		case statePerm:
			switch c {
			case 'r':
				act.Perm |= PermRead
				i++
			case 'w':
				act.Perm |= PermWrite
				i++
			case 'x':
				act.Perm |= PermExec
				i++
			case 'X':
				act.Perm |= PermCondX
				i++
			default:
				state = stateRef
			}
		case stateRef:
			// Reference characters are consumed greedily, last one wins.
			switch c {
			case 'u':
				act.Ref = WhoUser
				i++
			case 'g':
				act.Ref = WhoGroup
				i++
			case 'o':
				act.Ref = WhoOther
				i++
			default:
				state = stateEnd
			}
		case stateEnd:
			switch c {
			case 0, ',', '+', '-', '=':
				if c == 0 || c == ',' {
					i++
				}
				if act.Who == WhoNone {
					act.Who = WhoAll
				}
				actions = append(actions, act)
				lastWho := act.Who
				act = ChangeAction{}
				if c == '+' || c == '-' || c == '=' {
					// An operator straight after a clause opens a new action
					// for the same who set.
					act.Who = lastWho
				}
				state = stateWho
			default:
				return nil, &ErrMalformedMode{Mode: mode}
			}
		}
	}
	return actions, nil
}
