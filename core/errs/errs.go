// Package errs collects the error taxonomy shared across the core
// packages. Everything here is a sentinel value or a small struct type
// wrapped with fmt.Errorf's %w, matched with errors.Is/errors.As — the
// same convention the rest of the pipeline's ambient code uses.
package errs

import (
	"errors"
	"fmt"
)

// ErrUnsupported means the running kernel lacks a capability the core
// depends on: overlayfs, erofs, or xattr-capable tmpfs.
var ErrUnsupported = errors.New("capability not supported by kernel")

// ErrFatal means storage provisioning exhausted every backend option.
var ErrFatal = errors.New("fatal: no storage backend available")

// ErrInvalidInput means caller-supplied data failed validation: a bad
// module id, malformed hex payload, or malformed JSON/TOML.
var ErrInvalidInput = errors.New("invalid input")

// ErrEmptyErofs is returned when an erofs image mounts successfully but
// the resulting directory has no entries.
var ErrEmptyErofs = errors.New("erofs mount succeeded but target is empty")

// SubprocessError reports a non-zero exit from an external tool
// (mkfs.ext4, e2fsck, mkfs.erofs).
type SubprocessError struct {
	Tool     string
	ExitCode int
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
}

// MountFailure reports that a single overlay operation could not be
// mounted. Recoverable: the executor demotes the involved modules to
// magic-mount rather than aborting.
type MountFailure struct {
	Path string
	Err  error
}

func (e *MountFailure) Error() string {
	return fmt.Sprintf("mount failed for %s: %v", e.Path, e.Err)
}

func (e *MountFailure) Unwrap() error {
	return e.Err
}

// Wrap annotates err with a message, or returns nil if err is nil.
func Wrap(msg string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", msg, err)
}
