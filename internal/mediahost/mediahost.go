// Package mediahost is the client for the external media store that holds
// user-uploaded images (avatars and channel covers). The rest of the
// application talks to the Host interface only; the concrete implementation
// is an S3-compatible object store (AWS S3 or MinIO).
package mediahost

import (
	"context"
	"io"
)

// Asset identifies a stored media object. URL is the public address clients
// fetch, PublicID is the handle used to delete the object later.
type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Host is the contract for the media store. Upload failures are fatal to the
// calling operation; Delete is best-effort and callers log-and-ignore errors.
type Host interface {
	Upload(ctx context.Context, folder, filename string, content io.Reader, contentType string) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// AllowedImageTypes is the MIME allow-list for avatar and cover uploads.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// MimeToExtension maps allowed MIME types to stored object extensions.
var MimeToExtension = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ValidImageMagic checks that the content's magic bytes match the declared
// MIME type. Prevents uploading non-image files with a spoofed Content-Type
// header.
func ValidImageMagic(data []byte, declaredMIME string) bool {
	if len(data) < 4 {
		return false
	}
	switch declaredMIME {
	case "image/jpeg":
		return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return len(data) >= 8 &&
			data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
			data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
	case "image/gif":
		return len(data) >= 6 &&
			data[0] == 'G' && data[1] == 'I' && data[2] == 'F' && data[3] == '8' &&
			(data[4] == '7' || data[4] == '9') && data[5] == 'a'
	case "image/webp":
		return len(data) >= 12 &&
			data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
			data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P'
	default:
		return false
	}
}
