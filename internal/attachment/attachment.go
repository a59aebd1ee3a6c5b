// Package attachment manages image files staged for sending.
//
// An attachment is a private copy of a user-selected image. Staging at add
// time means the send still works if the original file is moved or edited
// after being attached, and gives each attachment exactly one owned
// resource that must be released: on removal, after a successful send, or
// on teardown. The base64 payload is computed lazily at send time.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrNotImage indicates the file content is not a supported image type.
	ErrNotImage = errors.New("not an image")

	// ErrReleased indicates the attachment's staged copy is already gone.
	ErrReleased = errors.New("attachment released")
)

// sniffLen is the number of leading bytes used for content-type detection.
const sniffLen = 512

// Payload is the wire form of an attachment: base64 bytes plus MIME type.
type Payload struct {
	Data     string // base64 (standard encoding)
	MIMEType string
}

// Attachment is a staged image file. Not safe for concurrent use; the
// single UI event loop is the only mutator.
type Attachment struct {
	Name     string // base name of the source file
	MIMEType string
	Size     int64

	stagedPath string
	released   bool
}

// Stage copies the image at path into dir and returns the attachment.
// The content type is detected from the file's leading bytes, with a file
// extension fallback for formats http.DetectContentType cannot identify.
// Non-image files are rejected with ErrNotImage.
func Stage(dir, path string) (*Attachment, error) {
	src, err := os.Open(path) // #nosec G304 -- path chosen by the local user
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotImage, path)
	}

	head := make([]byte, sniffLen)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType, err := detectImageType(head[:n], path)
	if err != nil {
		return nil, err
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %s: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	stagedPath := filepath.Join(dir, uuid.NewString()+filepath.Ext(path))
	dst, err := os.OpenFile(stagedPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating staged copy: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(stagedPath)
		return nil, fmt.Errorf("staging %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(stagedPath)
		return nil, fmt.Errorf("closing staged copy: %w", err)
	}

	return &Attachment{
		Name:       filepath.Base(path),
		MIMEType:   mimeType,
		Size:       info.Size(),
		stagedPath: stagedPath,
	}, nil
}

// detectImageType determines the image MIME type from content, falling
// back to the file extension. Content detection uses magic bytes, which
// cannot be spoofed by renaming.
func detectImageType(head []byte, path string) (string, error) {
	mimeType := http.DetectContentType(head)
	if strings.HasPrefix(mimeType, "image/") {
		return mimeType, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".gif":
		return "image/gif", nil
	case ".webp":
		return "image/webp", nil
	}
	return "", fmt.Errorf("%w: %s detected as %s", ErrNotImage, path, mimeType)
}

// Encode reads the staged copy and returns the base64 payload.
// Computed at send time, not at staging, so attachments the user removes
// before sending are never encoded.
func (a *Attachment) Encode() (Payload, error) {
	if a.released {
		return Payload{}, fmt.Errorf("%w: %s", ErrReleased, a.Name)
	}

	data, err := os.ReadFile(a.stagedPath)
	if err != nil {
		return Payload{}, fmt.Errorf("reading staged copy of %s: %w", a.Name, err)
	}

	return Payload{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: a.MIMEType,
	}, nil
}

// Release removes the staged copy. Idempotent: only the first call
// deletes; later calls are no-ops.
func (a *Attachment) Release() {
	if a.released {
		return
	}
	a.released = true
	_ = os.Remove(a.stagedPath)
}

// Released reports whether the staged copy has been released.
func (a *Attachment) Released() bool {
	return a.released
}

// StagedPath returns the location of the staged copy. Empty after Release
// would be misleading, so the path is always returned; check Released()
// before using it.
func (a *Attachment) StagedPath() string {
	return a.stagedPath
}
