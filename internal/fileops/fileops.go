package fileops

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
)

// Copy streams src to dst, preserving the source's permission bits.
func Copy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyVerified copies src to dst and verifies size plus SHA-256 of the
// written bytes against the source. dst is removed on any mismatch so a
// failed copy never leaves a corrupt file behind.
func CopyVerified(src, dst string) error {
	return CopyVerifiedContext(context.Background(), src, dst)
}

// CopyVerifiedContext behaves like CopyVerified and additionally checks
// ctx between read chunks so a cancelled context stops the copy early.
func CopyVerifiedContext(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source %s is not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	srcHash := sha256.New()
	dstHash := sha256.New()
	reader := ctxReader{ctx: ctx, r: io.TeeReader(in, srcHash)}
	written, err := io.Copy(io.MultiWriter(out, dstHash), reader)
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("short copy: wrote %d of %d bytes", written, info.Size())
	}
	if !bytes.Equal(srcHash.Sum(nil), dstHash.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("checksum mismatch after copy")
	}
	return nil
}

// Move renames src to dst, falling back to a verified copy plus source
// removal when the paths sit on different filesystems. If the fallback
// cannot finish, dst is removed so src stays untouched.
func Move(src, dst string) error {
	return MoveContext(context.Background(), src, dst)
}

// MoveContext behaves like Move; ctx bounds the cross-device copy
// fallback.
func MoveContext(ctx context.Context, src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return renameErr
	}

	if err := CopyVerifiedContext(ctx, src, dst); err != nil {
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after cross-device copy: %w", err)
	}
	return nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Exists reports whether path refers to an existing file or directory.
func Exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
