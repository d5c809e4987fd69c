package provenance

import (
	"context"
)

// Signer produces a signed asset from an in-memory asset and a manifest
// definition. Implementations never retry; failures propagate to the worker,
// which owns the fallback behavior.
type Signer interface {
	Sign(ctx context.Context, asset Asset, manifest ManifestDefinition) ([]byte, error)
}

// mimeExtensions maps the MIME types the worker handles to file extensions
// the provenance tool recognizes.
var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/tiff":      ".tif",
	"image/webp":      ".webp",
	"image/avif":      ".avif",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"application/pdf": ".pdf",
}

func extensionForMime(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}
