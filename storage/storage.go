// Package storage uploads user images to object storage and returns public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize is the upload limit for avatars and group icons.
const MaxImageSize = 5 << 20

var (
	ErrTooLarge        = errors.New("image must be 5MB or smaller")
	ErrUnsupportedType = errors.New("image must be PNG, JPEG, WebP or GIF")
	ErrDisabled        = errors.New("image uploads are not configured")
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store is an object store that serves uploaded objects publicly.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// CheckImage sniffs the content type and enforces the size limit. It
// returns the detected content type and file extension.
func CheckImage(body []byte) (string, string, error) {
	if len(body) > MaxImageSize {
		return "", "", ErrTooLarge
	}
	if len(body) == 0 {
		return "", "", ErrUnsupportedType
	}
	contentType := http.DetectContentType(body)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return contentType, ext, nil
}

// ImageKey builds a unique object key such as avatars/12/<uuid>.png.
func ImageKey(folder string, ownerID uint, ext string) string {
	return path.Join(folder, fmt.Sprint(ownerID), uuid.NewString()+ext)
}

// keyFromURL strips a public base URL from an object URL.
func keyFromURL(base, url string) (string, bool) {
	base = strings.TrimSuffix(base, "/") + "/"
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	key := strings.TrimPrefix(url, base)
	return key, key != ""
}

// Disabled rejects uploads. Used when no backend is configured.
type Disabled struct{}

func (Disabled) Put(context.Context, string, []byte, string) (string, error) {
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error {
	return nil
}
