package extraction

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// DefaultMimeType is sent to the model when neither the data URI nor the
// content itself identifies the image format.
const DefaultMimeType = "image/jpeg"

// DecodeImage strips an optional "data:<mime>;base64," prefix and decodes the
// payload. The mime type comes from the prefix, then from content sniffing.
func DecodeImage(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", ErrNoImage
	}

	var mimeType string
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", ErrInvalidImage
		}
		media, encoding, _ := strings.Cut(header, ";")
		if !strings.EqualFold(encoding, "base64") {
			return nil, "", ErrInvalidImage
		}
		mimeType = strings.ToLower(strings.TrimSpace(media))
		payload = data
	}

	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, "", ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", ErrInvalidImage
		}
	}
	if len(data) == 0 {
		return nil, "", ErrNoImage
	}

	if mimeType == "" {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			mimeType = sniffed
		} else {
			mimeType = DefaultMimeType
		}
	}
	return data, mimeType, nil
}
