package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"campus/internal/config"
	"campus/internal/validation"
)

// MaxImageSize caps uploaded images at 5 MiB.
const MaxImageSize = 5 << 20

// sniffLen is how much of the file is read to detect its type.
const sniffLen = 3072

var ErrDisabled = errors.New("media uploads are not configured")

const (
	notAnImageMsg  = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	imageTooBigMsg = "The image may not be larger than 5 MB."
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// File is an upload ready to be stored.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader stores a file under folder and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, f File) (string, error)
}

// New picks the backend named by cfg.MediaBackend.
func New(cfg config.App) (Uploader, error) {
	switch cfg.MediaBackend {
	case "cloudinary":
		if !cfg.Cloudinary.Enabled() {
			return nil, fmt.Errorf("cloudinary credentials are required")
		}
		c := cfg.Cloudinary
		return NewCloudinary(c.CloudName, c.APIKey, c.APISecret, c.Folder), nil
	case "minio", "s3":
		return NewMinIO(cfg.MinIO)
	case "", "none":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.MediaBackend)
	}
}

// CheckImage rejects files that exceed MaxImageSize or whose content is not a supported image.
// The type is detected from the leading bytes of f.Body, never from the client's header or file name.
// On success f.ContentType holds the detected type and f.Body still yields the whole file.
// The error is reported against field.
func CheckImage(field string, f *File) error {
	if f.Size > MaxImageSize {
		return validation.NewError(field, imageTooBigMsg)
	}
	if f.Body == nil {
		return validation.NewError(field, notAnImageMsg)
	}
	head, err := io.ReadAll(io.LimitReader(f.Body, sniffLen))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	detected := baseType(mimetype.Detect(head).String())
	if _, ok := imageTypes[detected]; !ok {
		return validation.NewError(field, notAnImageMsg)
	}
	f.ContentType = detected
	f.Body = io.MultiReader(bytes.NewReader(head), f.Body)
	return nil
}

// ObjectKey names a stored object: folder/<uuid><ext>. The extension follows f.ContentType.
func ObjectKey(folder string, f File) string {
	return path.Join(folder, uuid.NewString()+imageTypes[baseType(f.ContentType)])
}

func baseType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// Disabled rejects every upload.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, File) (string, error) {
	return "", ErrDisabled
}
