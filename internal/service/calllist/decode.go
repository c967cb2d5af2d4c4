package calllist

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	apperrors "memento-client/pkg/errors"
)

// MaxBodySize caps how much decoded body a fetch will read
const MaxBodySize = 16 << 20

// Decode undoes the content encoding of a response body. Supported encodings
// are gzip, deflate (zlib-wrapped, as HTTP defines it) and identity.
func Decode(encoding string, body []byte) ([]byte, error) {
	var r io.Reader
	switch encoding {
	case "identity", "":
		if len(body) > MaxBodySize {
			return nil, apperrors.TransportError(fmt.Sprintf("response body exceeds %d bytes", MaxBodySize), nil)
		}
		return body, nil
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, decodeError(encoding, err)
		}
		defer zr.Close()
		r = zr
	case "deflate":
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, decodeError(encoding, err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, apperrors.New(apperrors.ErrCodeEncodingMismatch,
			fmt.Sprintf("content encoding %q is not supported", encoding))
	}

	decoded, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, decodeError(encoding, err)
	}
	if len(decoded) > MaxBodySize {
		return nil, apperrors.TransportError(fmt.Sprintf("decoded response body exceeds %d bytes", MaxBodySize), nil)
	}
	return decoded, nil
}

// Encode applies a content encoding. It is the inverse of Decode and is used
// by servers that publish call lists.
func Encode(encoding string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "identity", "":
		return body, nil
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	default:
		return nil, fmt.Errorf("content encoding %q is not supported", encoding)
	}
	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeError(encoding string, err error) error {
	return apperrors.Wrap(apperrors.ErrCodeEncodingMismatch,
		fmt.Sprintf("response body is not valid %s data", encoding), err)
}
