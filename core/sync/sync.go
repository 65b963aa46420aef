// Package sync materializes module trees inside the storage staging area
// so overlays can lowerdir-reference stable paths, following
// builder/copy.go's hardlink-first, copy-fallback structure.
package sync

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/hybridmount/hybrid-mount/core/config"
	"github.com/hybridmount/hybrid-mount/core/inventory"
)

// PerformSync materializes every surviving module's per-partition
// subtrees under stagingMountPoint, then — for EROFS staging only —
// pre-creates a magic_workspace directory if any module requests Magic
// mode (default or per-path). onFile, if non-nil, is called once per
// file considered for copy (whether or not its content already matched
// and the copy was skipped) so a caller can drive a progress indicator.
func PerformSync(modules []inventory.Module, stagingMountPoint string, isErofsStaging bool, onFile func()) error {
	for _, m := range modules {
		for _, partition := range m.Partitions {
			src := filepath.Join(m.SourcePath, partition)
			dst := filepath.Join(stagingMountPoint, partition, m.ID)

			if err := copyTree(src, dst, onFile); err != nil {
				return fmt.Errorf("failed to sync module %s partition %s: %w", m.ID, partition, err)
			}
		}
	}

	if isErofsStaging && needsMagic(modules) {
		magicWorkspace := filepath.Join(stagingMountPoint, "magic_workspace")

		if _, err := os.Stat(magicWorkspace); os.IsNotExist(err) {
			if err := os.Mkdir(magicWorkspace, 0o755); err != nil {
				return fmt.Errorf("failed to create magic workspace: %w", err)
			}
		}
	}

	return nil
}

func needsMagic(modules []inventory.Module) bool {
	for _, m := range modules {
		if m.Rules.DefaultMode == config.ModeMagic {
			return true
		}

		for _, mode := range m.Rules.Paths {
			if mode == config.ModeMagic {
				return true
			}
		}
	}

	return false
}

// copyTree recursively materializes src at dst, hardlinking files when
// possible (same-device fast path) and falling back to a buffered copy,
// skipping files whose content already matches via a blake3 hash
// comparison so re-syncs are cheap.
func copyTree(src, dst string, onFile func()) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	if !info.IsDir() {
		if onFile != nil {
			onFile()
		}

		return copyFile(src, dst, info)
	}

	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := copyTree(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name()), onFile); err != nil {
			return err
		}
	}

	return nil
}

// CountFiles returns the total number of files PerformSync will consider
// copying across every surviving module's partitions, for callers that
// want to size a progress indicator before starting the sync.
func CountFiles(modules []inventory.Module) int {
	total := 0

	for _, m := range modules {
		for _, partition := range m.Partitions {
			total += countTreeFiles(filepath.Join(m.SourcePath, partition))
		}
	}

	return total
}

func countTreeFiles(root string) int {
	info, err := os.Stat(root)
	if err != nil {
		return 0
	}

	if !info.IsDir() {
		return 1
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0
	}

	total := 0

	for _, e := range entries {
		total += countTreeFiles(filepath.Join(root, e.Name()))
	}

	return total
}

func copyFile(src, dst string, info os.FileInfo) error {
	if same, err := sameContent(src, dst); err == nil && same {
		return nil
	}

	_ = os.Remove(dst)

	if err := os.Link(src, dst); err == nil {
		return nil
	}

	return copyFileContents(src, dst, info.Mode().Perm())
}

func copyFileContents(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)

	return err
}

func sameContent(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err != nil {
		return false, err
	}

	srcSum, err := hashFile(src)
	if err != nil {
		return false, err
	}

	dstSum, err := hashFile(dst)
	if err != nil {
		return false, err
	}

	return srcSum == dstSum, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return string(h.Sum(nil)), nil
}
