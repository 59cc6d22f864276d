package vendored

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sailor/internal/fault"
)

type entry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func buildTar(t *testing.T, w io.Writer, entries []entry) {
	t.Helper()

	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o755, Typeflag: e.typeflag, Linkname: e.linkname}
		if e.typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
}

func tarGz(t *testing.T, entries []entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	buildTar(t, gz, entries)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func tarZst(t *testing.T, entries []entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	buildTar(t, enc, entries)
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

var etcdRelease = []entry{
	{name: "etcd-v3.5.0-linux-amd64/", typeflag: tar.TypeDir},
	{name: "etcd-v3.5.0-linux-amd64/etcd", body: "etcd-binary", typeflag: tar.TypeReg},
	{name: "etcd-v3.5.0-linux-amd64/etcdctl", body: "etcdctl-binary", typeflag: tar.TypeReg},
	{name: "etcd-v3.5.0-linux-amd64/Documentation/README.md", body: "docs", typeflag: tar.TypeReg},
}

func TestUnpack(t *testing.T) {
	src := fstest.MapFS{
		"etcd.tar.gz":  {Data: tarGz(t, etcdRelease)},
		"etcd.tar.zst": {Data: tarZst(t, etcdRelease)},
	}

	for _, name := range []string{"etcd.tar.gz", "etcd.tar.zst"} {
		t.Run(name, func(t *testing.T) {
			dest := t.TempDir()
			require.NoError(t, Unpack(src, name, dest))

			data, err := os.ReadFile(filepath.Join(dest, "etcd-v3.5.0-linux-amd64", "etcd"))
			require.NoError(t, err)
			assert.Equal(t, "etcd-binary", string(data))

			info, err := os.Stat(filepath.Join(dest, "etcd-v3.5.0-linux-amd64", "etcdctl"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

			_, err = os.Stat(filepath.Join(dest, "etcd-v3.5.0-linux-amd64", "Documentation", "README.md"))
			require.NoError(t, err)
		})
	}
}

func TestUnpackErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     fstest.MapFS
		archive string
	}{
		{
			name:    "missing archive",
			src:     fstest.MapFS{},
			archive: "etcd.tar.gz",
		},
		{
			name:    "unsupported format",
			src:     fstest.MapFS{"etcd.zip": {Data: []byte("PK")}},
			archive: "etcd.zip",
		},
		{
			name:    "not gzip",
			src:     fstest.MapFS{"etcd.tar.gz": {Data: []byte("plain text")}},
			archive: "etcd.tar.gz",
		},
		{
			name:    "path escape",
			src:     fstest.MapFS{"evil.tgz": {Data: tarGz(t, []entry{{name: "../evil", body: "x", typeflag: tar.TypeReg}})}},
			archive: "evil.tgz",
		},
		{
			name:    "absolute path",
			src:     fstest.MapFS{"abs.tgz": {Data: tarGz(t, []entry{{name: "/etc/passwd", body: "x", typeflag: tar.TypeReg}})}},
			archive: "abs.tgz",
		},
		{
			name:    "symlink escape",
			src:     fstest.MapFS{"link.tgz": {Data: tarGz(t, []entry{{name: "bin/etcd", typeflag: tar.TypeSymlink, linkname: "../../../usr/bin/etcd"}})}},
			archive: "link.tgz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Unpack(tt.src, tt.archive, t.TempDir())
			require.Error(t, err)
			assert.True(t, fault.Is(err, fault.UnpackArchive))
		})
	}
}

func TestUnpackSymlinks(t *testing.T) {
	t.Run("absolute link target followed by a write through it", func(t *testing.T) {
		outside := t.TempDir()
		src := fstest.MapFS{"evil.tgz": {Data: tarGz(t, []entry{
			{name: "pkg/evil", typeflag: tar.TypeSymlink, linkname: outside},
			{name: "pkg/evil/escaped", body: "pwned", typeflag: tar.TypeReg},
		})}}

		err := Unpack(src, "evil.tgz", t.TempDir())
		require.Error(t, err)
		assert.True(t, fault.Is(err, fault.UnpackArchive))

		_, err = os.Stat(filepath.Join(outside, "escaped"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("write through an in-tree link is refused", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "dest")
		require.NoError(t, os.MkdirAll(filepath.Join(dest, "inner"), 0o755))

		src := fstest.MapFS{"evil.tgz": {Data: tarGz(t, []entry{
			{name: "pkg/", typeflag: tar.TypeDir},
			{name: "pkg/inner", typeflag: tar.TypeSymlink, linkname: "../inner"},
			{name: "pkg/inner/escaped", body: "x", typeflag: tar.TypeReg},
		})}}

		err := Unpack(src, "evil.tgz", dest)
		require.Error(t, err)
		_, err = os.Stat(filepath.Join(dest, "inner", "escaped"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("link inside the destination is kept", func(t *testing.T) {
		dest := t.TempDir()
		src := fstest.MapFS{"ok.tgz": {Data: tarGz(t, []entry{
			{name: "bin/etcd", body: "etcd-binary", typeflag: tar.TypeReg},
			{name: "etcd", typeflag: tar.TypeSymlink, linkname: "bin/etcd"},
		})}}

		require.NoError(t, Unpack(src, "ok.tgz", dest))
		data, err := os.ReadFile(filepath.Join(dest, "etcd"))
		require.NoError(t, err)
		assert.Equal(t, "etcd-binary", string(data))
	})
}
