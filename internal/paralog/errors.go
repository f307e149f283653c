package paralog

import "errors"

// Configuration errors. Each aborts a run before anything is written.
var (
	ErrNoPriorTable    = errors.New("cross-genome merge requires a non-empty paralog table")
	ErrSelfAppend      = errors.New("self comparison cannot append to an existing paralog table")
	ErrDuplicateColumn = errors.New("genome already has a column in the paralog table")
)
