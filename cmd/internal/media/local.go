package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalUploader is a dev-only fallback when object storage is not
// configured. It moves uploads into a local directory and returns URLs under
// baseURL; the app serves that directory over HTTP.
type LocalUploader struct {
	dir     string
	baseURL string
}

// NewLocalUploader creates the target directory if needed.
func NewLocalUploader(dir, baseURL string) (*LocalUploader, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("media: empty local media dir")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("media: create %s: %w", dir, err)
	}
	return &LocalUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory served over HTTP.
func (u *LocalUploader) Dir() string { return u.dir }

// Upload moves localPath into the media directory under a random name.
// Like the S3 uploader, the source file is gone on every return path.
func (u *LocalUploader) Upload(ctx context.Context, localPath string) (string, error) {
	localPath = strings.TrimSpace(localPath)
	if localPath == "" {
		return "", ErrNoFile
	}
	if err := ctx.Err(); err != nil {
		os.Remove(localPath)
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	dst := filepath.Join(u.dir, name)

	if err := os.Rename(localPath, dst); err != nil {
		// Rename fails across filesystems; fall back to copy.
		if copyErr := copyFile(localPath, dst); copyErr != nil {
			os.Remove(localPath)
			if os.IsNotExist(err) {
				return "", ErrNoFile
			}
			return "", fmt.Errorf("%w: store %s: %v", ErrUpload, name, copyErr)
		}
		os.Remove(localPath)
	}

	return u.baseURL + "/" + name, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
