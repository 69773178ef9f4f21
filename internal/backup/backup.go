// Package backup archives the manager's configuration and key material
// before risky operations. Archives are tar streams compressed with lz4,
// with an xxhash64 checksum stored in a sidecar manifest.
package backup

import (
	"archive/tar"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/lz4/v4"
)

const manifestSuffix = ".xxh64"

// Create archives the given paths (files or directories) into destDir
// and writes a checksum manifest next to the archive. It returns the
// archive path. Missing inputs are skipped; archiving nothing is an
// error.
func Create(destDir string, paths []string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("witness-manager-backup-%s.tar.lz4", time.Now().UTC().Format("20060102-150405"))
	archivePath := filepath.Join(destDir, name)

	f, err := os.OpenFile(archivePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	lw := lz4.NewWriter(io.MultiWriter(f, h))
	tw := tar.NewWriter(lw)

	added := 0
	for _, p := range paths {
		n, err := addPath(tw, p)
		if err != nil {
			return "", fmt.Errorf("archive %s: %w", p, err)
		}
		added += n
	}
	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := lw.Close(); err != nil {
		return "", err
	}
	if added == 0 {
		os.Remove(archivePath)
		return "", fmt.Errorf("nothing to back up")
	}

	manifest := fmt.Sprintf("%s  %s\n", hex.EncodeToString(h.Sum(nil)), name)
	if err := os.WriteFile(archivePath+manifestSuffix, []byte(manifest), 0o600); err != nil {
		return "", err
	}
	return archivePath, nil
}

func addPath(tw *tar.Writer, root string) (int, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	base := filepath.Base(root)
	if !info.IsDir() {
		return 1, addFile(tw, root, base)
	}
	count := 0
	err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		count++
		return addFile(tw, path, filepath.Join(base, rel))
	})
	return count, err
}

func addFile(tw *tar.Writer, path, name string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(name)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// Verify recomputes the archive checksum against its manifest.
func Verify(archivePath string) error {
	manifest, err := os.ReadFile(archivePath + manifestSuffix)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	fields := strings.Fields(string(manifest))
	if len(fields) < 1 {
		return fmt.Errorf("empty manifest")
	}
	want := fields[0]

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	got := hex.EncodeToString(h.Sum(nil))
	if got != want {
		return fmt.Errorf("checksum mismatch: manifest %s, archive %s", want, got)
	}
	return nil
}

// Restore extracts an archive into destDir after verifying it. Paths
// escaping destDir are rejected.
func Restore(archivePath, destDir string) error {
	if err := Verify(archivePath); err != nil {
		return err
	}
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	tr := tar.NewReader(lz4.NewReader(f))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		clean := filepath.Clean(hdr.Name)
		if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
			return fmt.Errorf("invalid path in archive: %s", hdr.Name)
		}
		target := filepath.Join(destDir, clean)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("path traversal detected: %s", hdr.Name)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write %s: %w", clean, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
		}
	}
}
