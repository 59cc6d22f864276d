// Package vendored extracts the binary archives shipped alongside sailor.
package vendored

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/wolfeidau/sailor/internal/fault"
)

// Unpack extracts the archive called name from src into dest. Supported
// formats are .tar.gz, .tgz and .tar.zst. Entries that would land outside
// dest are rejected.
func Unpack(src fs.FS, name, dest string) error {
	f, err := src.Open(name)
	if err != nil {
		return fault.Wrap(fault.UnpackArchive, err, fmt.Sprintf("archive with name '%s' was not found", name))
	}
	defer f.Close()

	var r io.Reader
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fault.Wrap(fault.UnpackArchive, err, "failed to create gzip reader")
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".tar.zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fault.Wrap(fault.UnpackArchive, err, "failed to create zstd decoder")
		}
		defer dec.Close()
		r = dec
	default:
		return fault.Newf(fault.UnpackArchive, "unsupported archive format '%s'", name)
	}

	if err := extract(tar.NewReader(r), dest); err != nil {
		return fault.Wrap(fault.UnpackArchive, err, fmt.Sprintf("failed to unpack '%s'", name))
	}
	return nil
}

func extract(tr *tar.Reader, dest string) error {
	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := entryPath(root, hdr.Name)
		if err != nil {
			return err
		}
		if err := noSymlinkBelow(root, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("archive entry %q links to absolute path %q", hdr.Name, hdr.Linkname)
			}
			resolved := filepath.Join(filepath.Dir(target), hdr.Linkname)
			if resolved != root && !strings.HasPrefix(resolved, root+string(os.PathSeparator)) {
				return fmt.Errorf("archive entry %q links outside destination", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// skip devices, fifos and hard links
		}
	}
}

// entryPath resolves name below root, refusing absolute paths and any path
// that climbs out of root.
func entryPath(root, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q is absolute", name)
	}
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

// noSymlinkBelow fails when target, or any existing directory between root
// and target, is a symlink. Writing through one could land outside root.
func noSymlinkBelow(root, target string) error {
	for p := target; p != root && strings.HasPrefix(p, root); p = filepath.Dir(p) {
		info, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("archive entry path %q passes through symlink %q", target, p)
		}
	}
	return nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}

	// #nosec G110 - archives are shipped with the installer
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
