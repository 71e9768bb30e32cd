package winchmod

// resolveMask reads the object's current permission state and folds the
// action list through computeMode in source order. It returns both the
// starting bits and the final mask so callers can report the transition.
func resolveMask(ops FileOps, path string, actions []ChangeAction) (old, final uint16, err error) {
	fi, err := ops.Stat(path)
	if err != nil {
		return 0, 0, &ErrLookupFailed{Path: path, Op: "stat", Err: err}
	}
	bits, err := ops.Mode(path)
	if err != nil {
		return 0, 0, &ErrLookupFailed{Path: path, Op: "query permissions", Err: err}
	}

	state := PermState{Bits: bits, IsDir: fi.IsDir()}
	for _, act := range actions {
		state = computeMode(state, act)
	}
	return bits, state.Bits, nil
}
