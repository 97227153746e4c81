package gateway

import "strings"

const contentTypeFallback = "application/octet-stream"

var contentTypesByExtension = map[string]string{
	// Images
	"avif": "image/avif",
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"ico":  "image/x-icon",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"webp": "image/webp",

	// Audio / Video
	"avi":  "video/x-msvideo",
	"flac": "audio/flac",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"ogg":  "audio/ogg",
	"wav":  "audio/wav",
	"webm": "video/webm",

	// Documents / Text / Code
	"css":  "text/css",
	"csv":  "text/csv",
	"html": "text/html",
	"js":   "application/javascript",
	"json": "application/json",
	"md":   "text/markdown",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"xml":  "application/xml",

	// Archives
	"7z":  "application/x-7z-compressed",
	"gz":  "application/gzip",
	"rar": "application/x-rar-compressed",
	"tar": "application/x-tar",
	"zip": "application/zip",
}

// resolveContentType prefers the stored content type and falls back to
// the key's extension when none (or only the generic one) was stored
func resolveContentType(key, stored string) string {
	if stored != "" && stored != contentTypeFallback {
		return stored
	}

	ext := strings.ToLower(key[strings.LastIndex(key, ".")+1:])
	if ct, ok := contentTypesByExtension[ext]; ok {
		return ct
	}

	return contentTypeFallback
}
