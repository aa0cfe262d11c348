package storage

import "errors"

var (
	// ErrInvalidYear means the year value contains no digits at all.
	ErrInvalidYear = errors.New("year contains no digits")
	// ErrPlacementFailed means directory creation or the file move failed.
	ErrPlacementFailed = errors.New("placement failed")
	// ErrRelocationFailed means a relocation's move/rename sequence failed.
	// The file is guaranteed to be back at its original path when this is
	// returned.
	ErrRelocationFailed = errors.New("relocation failed")
)
