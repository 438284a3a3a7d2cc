package repair

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lucasnoah/gatewright/internal/store"
)

// backupExcludes are entry names never checkpointed and never deleted
// on restore, matched at every directory level.
var backupExcludes = map[string]bool{
	store.Dir:      true,
	".git":         true,
	"__pycache__":  true,
	".venv":        true,
	".tox":         true,
	".nox":         true,
	"dist":         true,
	"node_modules": true,
}

// treeCheckpoint snapshots and rolls back a workspace by copying its
// tree. State directories and build caches are left out of both
// directions.
type treeCheckpoint struct{}

// Backup checkpoints root into backupDir, replacing any previous
// checkpoint at that path. Symlinks are copied as links.
func (treeCheckpoint) Backup(root, backupDir string) error {
	if err := os.RemoveAll(backupDir); err != nil {
		return fmt.Errorf("clearing checkpoint %s: %w", backupDir, err)
	}
	return copyTree(root, backupDir)
}

// Restore rolls root back to a checkpoint: every non-excluded top-level
// entry is deleted, then the checkpoint's contents are copied back.
func (treeCheckpoint) Restore(root, backupDir string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading %s: %w", root, err)
	}
	for _, entry := range entries {
		if backupExcludes[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
	}
	return copyTree(backupDir, root)
}

func copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dst, err)
	}
	for _, entry := range entries {
		if backupExcludes[entry.Name()] {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", srcPath, err)
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", srcPath, err)
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return fmt.Errorf("symlink %s: %w", dstPath, err)
			}
		case entry.IsDir():
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
		default:
			if err := copyFile(srcPath, dstPath, info.Mode()); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", dst, err)
	}
	return out.Close()
}
