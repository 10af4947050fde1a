package fsops

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// ErrUnknownArchive is returned when the archive format cannot be detected.
var ErrUnknownArchive = errors.New("unsupported archive format")

var (
	magicZip  = []byte("PK\x03\x04")
	magicGzip = []byte{0x1f, 0x8b}
	magicXz   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ExtractArchiveFile reads the archive at path and extracts it into dest.
func ExtractArchiveFile(path, dest string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read archive %s: %w", path, err)
	}
	return ExtractArchive(data, dest)
}

// ExtractArchive unpacks a zip or (optionally compressed) tar archive
// into dest. The format is detected from the leading bytes.
//
// An entry with no content is a directory marker and its whole path is
// created. Every other entry is written as a file, creating parent
// directories on demand, so entries may arrive in any order.
func ExtractArchive(data []byte, dest string) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := EnsureDir(dest); err != nil {
		return err
	}

	switch {
	case bytes.HasPrefix(data, magicZip):
		return extractZip(data, dest)
	case bytes.HasPrefix(data, magicGzip):
		gz, err := pgzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		return extractTar(gz, dest)
	case bytes.HasPrefix(data, magicXz):
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		return extractTar(xr, dest)
	case bytes.HasPrefix(data, magicZstd):
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		return extractTar(zr, dest)
	case isTar(data):
		return extractTar(bytes.NewReader(data), dest)
	default:
		return ErrUnknownArchive
	}
}

func isTar(data []byte) bool {
	return len(data) >= 262 && bytes.Equal(data[257:262], []byte("ustar"))
}

func extractZip(data []byte, dest string) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}

	for _, f := range r.File {
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}

		if f.FileInfo().IsDir() || f.UncompressedSize64 == 0 {
			if err := EnsureDir(target); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}
		err = writeEntry(target, rc, f.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading tar header: %w", err)
		}

		switch hdr.Typeflag {
		case tar.TypeXHeader, tar.TypeXGlobalHeader:
			continue
		case tar.TypeDir, tar.TypeReg:
		default:
			// Links and devices are not needed by any staged asset.
			continue
		}

		target, err := entryPath(dest, hdr.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}

		if hdr.Typeflag == tar.TypeDir || hdr.Size == 0 {
			if err := EnsureDir(target); err != nil {
				return err
			}
			continue
		}

		if err := writeEntry(target, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
			return err
		}
	}
}

// entryPath maps an archive entry name onto dest. Empty path segments are
// dropped and names escaping dest are rejected.
func entryPath(dest, name string) (string, error) {
	parts := make([]string, 0, 8)
	for _, p := range strings.Split(strings.ReplaceAll(name, "\\", "/"), "/") {
		if p == "" || p == "." {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "", nil
	}

	target := filepath.Join(append([]string{dest}, parts...)...)
	if !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := EnsureDir(filepath.Dir(target)); err != nil {
		return err
	}
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return out.Close()
}
