package bikeindex

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
)

// fileField is the multipart field carrying the binary part.
const fileField = "file"

// encodedBody is a serialised request body.
type encodedBody struct {
	contentType string
	data        []byte
}

// encodeBody serialises d's payload. It never performs I/O beyond memory.
func encodeBody(d Descriptor) (*encodedBody, error) {
	if d.Body == nil {
		return nil, domain.ErrMissingPayload
	}

	switch d.Encoding {
	case EncodingForm:
		fields, err := d.Body.Fields()
		if err != nil {
			return nil, &domain.EncodingError{Op: d.Op, Err: err}
		}
		return &encodedBody{
			contentType: "application/x-www-form-urlencoded",
			data:        []byte(fields.Encode()),
		}, nil

	case EncodingMultipart:
		return encodeMultipart(d)

	default:
		return nil, domain.ErrMissingFormType
	}
}

func encodeMultipart(d Descriptor) (*encodedBody, error) {
	fields, err := d.Body.Fields()
	if err != nil {
		return nil, &domain.EncodingError{Op: d.Op, Err: err}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, values := range fields {
		for _, value := range values {
			if err := w.WriteField(key, value); err != nil {
				return nil, &domain.EncodingError{Op: d.Op, Err: err}
			}
		}
	}

	if fp, ok := d.Body.(FilePayload); ok {
		name, data := fp.File()
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			fileField, escapeQuotes(name)))
		h.Set("Content-Type", "application/octet-stream")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, &domain.EncodingError{Op: d.Op, Err: err}
		}
		if _, err := part.Write(data); err != nil {
			return nil, &domain.EncodingError{Op: d.Op, Err: err}
		}
	}

	if err := w.Close(); err != nil {
		return nil, &domain.EncodingError{Op: d.Op, Err: err}
	}
	return &encodedBody{contentType: w.FormDataContentType(), data: buf.Bytes()}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
