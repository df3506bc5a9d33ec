package envbuild

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/gantryci/gantry/internal/ctxlog"
)

// Lease clones the snapshot behind a handle into a private working tree
// for one job. Snapshots stay immutable: concurrent jobs referencing the
// same environment each get their own lease and cannot interfere. The
// returned release function discards the lease.
func (b *Builder) Lease(ctx context.Context, handle *Handle, jobName string) (string, func(), error) {
	dir := filepath.Join(b.scratchRoot, fmt.Sprintf("lease-%s-%s", jobName, uuid.NewString()[:8]))
	if err := copyTree(handle.Dir, dir); err != nil {
		os.RemoveAll(dir)
		return "", nil, fmt.Errorf("failed to lease environment %q for job %q: %w",
			handle.Environment, jobName, err)
	}
	ctxlog.FromContext(ctx).Debug("Leased environment snapshot.",
		"environment", handle.Environment, "job", jobName, "dir", dir)

	release := func() { os.RemoveAll(dir) }
	return dir, release, nil
}

// copyInput materialises one copy declaration (a file or directory path
// relative to the source root) into the snapshot, preserving its relative
// location.
func copyInput(sourceRoot, rel, snapshotDir string) error {
	src := filepath.Join(sourceRoot, rel)
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy input %q: %w", rel, err)
	}
	dst := filepath.Join(snapshotDir, rel)
	if info.IsDir() {
		return copyTree(src, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyFile(src, dst, info.Mode())
}

// copyTree recursively copies a directory, preserving file modes. Later
// copies may overwrite files placed by earlier layers.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
