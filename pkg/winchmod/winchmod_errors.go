package winchmod

import "fmt"

// ErrMalformedMode reports a mode expression that is neither a valid octal
// mask nor a valid symbolic expression. No native calls are attempted for a
// malformed mode.
type ErrMalformedMode struct {
	Mode string
}

func (e *ErrMalformedMode) Error() string {
	return fmt.Sprintf("invalid mode: '%s'", e.Mode)
}

// ErrLookupFailed reports a failed metadata or permission query. Op names the
// native operation that failed.
type ErrLookupFailed struct {
	Path string
	Op   string
	Err  error
}

func (e *ErrLookupFailed) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *ErrLookupFailed) Unwrap() error { return e.Err }

// ErrACLBuild reports that the access control list could not be constructed.
type ErrACLBuild struct {
	Reason string
}

func (e *ErrACLBuild) Error() string {
	return fmt.Sprintf("cannot build access control list: %s", e.Reason)
}

// ErrApplyFailed reports that writing the new security information to the
// object failed. The object's previous state is left untouched.
type ErrApplyFailed struct {
	Path string
	Op   string
	Err  error
}

func (e *ErrApplyFailed) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *ErrApplyFailed) Unwrap() error { return e.Err }
