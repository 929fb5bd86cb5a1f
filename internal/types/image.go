package types

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultImageMIME is used when the model does not declare a MIME type.
const DefaultImageMIME = "image/png"

var ErrInvalidDataURI = errors.New("types: invalid data URI")

// ImageRef is a decoded inline image payload.
type ImageRef struct {
	MIMEType string
	Data     []byte
}

// DataURI renders the image as "data:<mime>;base64,<payload>".
func (r ImageRef) DataURI() string {
	mime := strings.TrimSpace(r.MIMEType)
	if mime == "" {
		mime = DefaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Extension guesses a file extension for the MIME type.
func (r ImageRef) Extension() string {
	switch strings.ToLower(strings.TrimSpace(r.MIMEType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

// ParseDataURI splits a base64 data URI back into MIME type and raw bytes.
func ParseDataURI(uri string) (ImageRef, error) {
	uri = strings.TrimSpace(uri)
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ImageRef{}, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ImageRef{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}
	mime, enc, _ := strings.Cut(header, ";")
	if enc != "base64" {
		return ImageRef{}, fmt.Errorf("%w: unsupported encoding %q", ErrInvalidDataURI, enc)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ImageRef{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if mime == "" {
		mime = DefaultImageMIME
	}
	return ImageRef{MIMEType: mime, Data: data}, nil
}
