package typeset

import (
	"errors"
	"fmt"
	"io/fs"
)

type fileNotFound struct{}

func (fileNotFound) Error() string { return "font file not found" }

// Is lets errors.Is(err, fs.ErrNotExist) hold for missing font files.
func (fileNotFound) Is(target error) bool { return target == fs.ErrNotExist }

var (
	// ErrFileNotFound is returned by LoadFont when the path does not name an
	// existing file. The wrapping error carries the path.
	ErrFileNotFound error = fileNotFound{}
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNoActiveFont       = fmt.Errorf("%w: no active font", ErrInvalidArgument)
	ErrClosed             = errors.New("session closed")
)
