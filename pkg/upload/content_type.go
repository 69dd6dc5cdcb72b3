package upload

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when neither the extension nor the content
// identifies the file.
const DefaultContentType = "application/octet-stream"

// sniffLen matches the window net/http uses for content sniffing.
const sniffLen = 512

// detectContentType picks the MIME type stored with an object.
//
// A known extension wins. Otherwise the first bytes are sniffed with mimetype.
// The reader is rewound before returning.
func detectContentType(f io.ReadSeeker, path string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt, nil
		}
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if err := rewind(f); err != nil {
		return "", err
	}

	if n == 0 {
		return DefaultContentType, nil
	}
	return mimetype.Detect(buf[:n]).String(), nil
}
