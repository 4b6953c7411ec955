package filestore

import (
	"github.com/h2non/filetype"
)

// SniffLen is the number of leading bytes SniffMime needs.
const SniffLen = 261

func init() {
	filetype.AddType("jpeg", "image/jpeg")
	filetype.AddType("apk", "application/vnd.android.package-archive")
}

// MimeByExt returns the MIME type registered for a lowercase extension
// (without the dot), or "" when it is unknown.
func MimeByExt(ext string) string {
	if ext == "" {
		return ""
	}
	t := filetype.GetType(ext)
	if t == filetype.Unknown {
		return ""
	}
	return t.MIME.Value
}

// SniffMime detects the MIME type from a file's leading bytes, or "" when
// the signature is not recognised.
func SniffMime(head []byte) string {
	t, err := filetype.Match(head)
	if err != nil || t == filetype.Unknown {
		return ""
	}
	return t.MIME.Value
}
