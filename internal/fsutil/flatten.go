// Package fsutil holds filesystem helpers used while laying out installed
// components.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/otiai10/copy"
	"github.com/wolfeidau/sailor/internal/fault"
)

// Move copies file into destDir and removes the original. Unlike os.Rename
// this works across mount points.
func Move(file, destDir string) error {
	dest := filepath.Join(destDir, filepath.Base(file))
	if err := copy.Copy(file, dest, copy.Options{PreserveTimes: true}); err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to copy "+file)
	}
	if err := os.Remove(file); err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to remove "+file)
	}
	return nil
}

// Flatten moves every regular file below dir directly into dir and removes
// the emptied sub-directories. Symlinks are removed. When whitelist is
// non-nil, nested files whose base name is not listed are deleted instead of
// moved. Files already directly in dir are left alone.
func Flatten(dir string, whitelist []string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to resolve "+dir)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to stat "+dir)
	}
	if !info.IsDir() {
		return fault.New(fault.FileIO, fmt.Sprintf("destination path %s is not a directory", dir))
	}

	return flatten(root, root, whitelist)
}

func flatten(from, to string, whitelist []string) error {
	info, err := os.Lstat(from)
	if err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to stat "+from)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return remove(from)
	case info.Mode().IsRegular():
		if filepath.Dir(from) == to {
			return nil
		}
		if whitelist != nil && !slices.Contains(whitelist, info.Name()) {
			return remove(from)
		}
		return Move(from, to)
	case info.IsDir():
		entries, err := os.ReadDir(from)
		if err != nil {
			return fault.Wrap(fault.FileIO, err, "failed to read "+from)
		}
		for _, entry := range entries {
			if err := flatten(filepath.Join(from, entry.Name()), to, whitelist); err != nil {
				return err
			}
		}
		if from != to {
			return remove(from)
		}
		return nil
	default:
		return remove(from)
	}
}

func remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fault.Wrap(fault.FileIO, err, "failed to remove "+path)
	}
	return nil
}
