package calllist

import (
	"net/http"

	apperrors "memento-client/pkg/errors"
)

const (
	// DefaultEncoding is the Accept-Encoding sent when none is configured
	DefaultEncoding = "gzip"
	// MediaType is the content type of a call-list document
	MediaType = "application/vnd.projectclearwater.call-list+xml"
	// ListPathPrefix is the call-list application's path on a memento server
	ListPathPrefix = "/org.projectclearwater.call-list/users/"
	// ListDocument is the name of a user's call-list resource
	ListDocument = "call-list.xml"
)

// Inspect checks the response headers against what was asked for. The
// comparison is exact; the encoding is checked before the content type.
func Inspect(header http.Header, expectedEncoding, expectedMediaType string) error {
	if actual := header.Get("Content-Encoding"); actual != expectedEncoding {
		return apperrors.EncodingMismatchError(expectedEncoding, actual)
	}
	if actual := header.Get("Content-Type"); actual != expectedMediaType {
		return apperrors.ContentTypeMismatchError(expectedMediaType, actual)
	}
	return nil
}
