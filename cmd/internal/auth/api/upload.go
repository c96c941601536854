package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var errImageTooLarge = errors.New("image exceeds the size limit")

// allowed upload extensions; anything else is rejected before it touches
// object storage.
var allowedImageExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// saveUploadedImage copies the named multipart file to a temp file and
// returns its path. Returns ("", nil) when the field is absent, which lets
// callers treat optional images uniformly. The caller owns the temp file;
// the media uploader removes it after the upload attempt.
func (h *Handler) saveUploadedImage(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExt[ext] {
		return "", fmt.Errorf("%s: unsupported image type %q", field, ext)
	}

	tmp, err := os.CreateTemp(h.cfg.TempDir, "vidtube-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", field, err)
	}

	// +1 so an exactly-at-limit file passes and one byte more trips the check.
	n, err := io.Copy(tmp, io.LimitReader(file, h.cfg.MaxImageBytes+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > h.cfg.MaxImageBytes {
		err = errImageTooLarge
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		if errors.Is(err, errImageTooLarge) {
			return "", fmt.Errorf("%s: %w", field, errImageTooLarge)
		}
		return "", fmt.Errorf("store temp for %s: %w", field, err)
	}

	return tmp.Name(), nil
}

// removeIfPresent best-effort deletes a temp file that never reached the
// uploader (which would otherwise have removed it).
func removeIfPresent(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	_ = os.Remove(path)
}
