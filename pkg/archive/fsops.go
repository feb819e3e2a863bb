package archive

import (
	"io"
	"os"
	"path/filepath"
)

// copyPath copies a file, directory tree, or symlink with structural
// fidelity: symlinks stay symlinks, file modes and modification times are
// preserved. Config trees contain symlinks (theme pointers) whose target
// must remain a symlink after restore, so a flat read+rewrite is not enough.
func copyPath(src, dest string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return copySymlink(src, dest)
	case info.IsDir():
		return copyDir(src, dest, info)
	default:
		return copyFile(src, dest, info)
	}
}

func copySymlink(src, dest string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	return os.Symlink(target, dest)
}

func copyDir(src, dest string, info os.FileInfo) error {
	if err := os.MkdirAll(dest, info.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcEntry := filepath.Join(src, entry.Name())
		destEntry := filepath.Join(dest, entry.Name())
		if err := copyPath(srcEntry, destEntry); err != nil {
			return err
		}
	}

	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}

func copyFile(src, dest string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}

// movePath renames src to dest, falling back to copy+remove when the
// rename crosses filesystems.
func movePath(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyPath(src, dest); err != nil {
		return err
	}
	return os.RemoveAll(src)
}
