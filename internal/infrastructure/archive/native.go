// Package archive bundles serialized records into a single deposit artifact.
package archive

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"K10PlusExport/internal/ports"
)

const rootOwner = "root"

// Native writes tar.gz archives in-process.
type Native struct{}

var (
	_ ports.Packager          = Native{}
	_ ports.ArchiveCapability = Native{}
)

// NewNative returns the in-process packager.
func NewNative() Native {
	return Native{}
}

// Check always succeeds; the native packager needs no host tools.
func (Native) Check() error {
	return nil
}

// Package returns files[0] unchanged for a single file. Several files are
// written to output as a gzip-compressed tar holding only their basenames.
func (Native) Package(ctx context.Context, files []string, output string) (string, error) {
	switch len(files) {
	case 0:
		return "", fmt.Errorf("package: no files")
	case 1:
		return files[0], nil
	}

	if err := uniqueBasenames(files); err != nil {
		return "", err
	}

	out, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	if err := writeArchive(ctx, out, files); err != nil {
		out.Close()
		os.Remove(output)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(output)
		return "", fmt.Errorf("close archive: %w", err)
	}
	return output, nil
}

func writeArchive(ctx context.Context, w io.Writer, files []string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(tw, file); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}
	return nil
}

func addFile(tw *tar.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", file, err)
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     filepath.Base(file),
		Size:     info.Size(),
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime(),
		Uid:      0,
		Gid:      0,
		Uname:    rootOwner,
		Gname:    rootOwner,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", header.Name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("write %s: %w", header.Name, err)
	}
	return nil
}

func uniqueBasenames(files []string) error {
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		name := filepath.Base(file)
		if _, ok := seen[name]; ok {
			return fmt.Errorf("package: duplicate entry %s", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
