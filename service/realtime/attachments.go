package realtime

import (
	"net/http"
	"strings"
)

// extByContentType covers the attachment types clients actually send. The
// sniffer works from content, never from a client-supplied name.
var extByContentType = map[string]string{
	"image/png":        "png",
	"image/jpeg":       "jpg",
	"image/gif":        "gif",
	"image/webp":       "webp",
	"image/bmp":        "bmp",
	"application/pdf":  "pdf",
	"video/mp4":        "mp4",
	"video/webm":       "webm",
	"audio/mpeg":       "mp3",
	"audio/wave":       "wav",
	"application/ogg":  "ogg",
	"application/zip":  "zip",
	"application/gzip": "gz",
}

// sniffExtension detects an attachment's type from its bytes. ok is false
// when the content is unrecognisable, which callers reject as an unsupported
// media type.
func sniffExtension(data []byte) (string, bool) {
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	ext, ok := extByContentType[strings.TrimSpace(ct)]
	return ext, ok
}
