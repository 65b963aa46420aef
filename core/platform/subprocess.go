//go:build linux

package platform

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hybridmount/hybrid-mount/core/defs"
	"github.com/hybridmount/hybrid-mount/core/errs"
)

func run(tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return fmt.Errorf("failed to exec %s: %w", tool, err)
		}

		return &errs.SubprocessError{Tool: tool, ExitCode: exitErr.ExitCode()}
	}

	return nil
}

// MkfsExt4 formats image as ext4 with a 1024-byte block size.
func MkfsExt4(image string) error {
	return run("mkfs.ext4", "-b", "1024", image)
}

// E2fsck runs e2fsck -yf against image. Any non-zero exit status
// (1 meaning "errors corrected") is tolerated since fsck's own exit
// status is advisory; only an exec failure is surfaced.
func E2fsck(image string) error {
	cmd := exec.Command("e2fsck", "-yf", image)

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return nil
		}

		return fmt.Errorf("failed to exec e2fsck %s: %w", image, err)
	}

	return nil
}

// MkfsErofs packs srcDir into an EROFS image at imagePath using
// lz4hc compression, preferring the bundled binary at
// defs.MkfsErofsPath and falling back to PATH lookup.
func MkfsErofs(imagePath, srcDir string) error {
	tool := defs.MkfsErofsPath
	if _, err := os.Stat(tool); err != nil {
		tool = "mkfs.erofs"
	}

	return run(tool, "-z", "lz4hc", "-x", "256", imagePath, srcDir)
}
