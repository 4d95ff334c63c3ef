// Package upload turns uploaded files into handles the form pipeline can keep
// in its params tree. The HTTP parser reads multipart file headers from a
// query.Request and returns *File values.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/query"
)

// MIMEOctetStream is reported when the content type cannot be detected.
const MIMEOctetStream = "application/octet-stream"

const mimeDetectionBytes = 512

// ErrUnsupportedQuery is returned when the query does not carry multipart
// data.
var ErrUnsupportedQuery = errors.New("upload: query does not expose an http request")

// File is an uploaded file handle.
type File struct {
	ID          string
	Field       string
	Filename    string
	Size        int64
	ContentType string
	// MIME is detected from the first bytes of the content, not the
	// declared content type.
	MIME string

	header *multipart.FileHeader
}

// Open opens the uploaded content.
func (f *File) Open() (multipart.File, error) {
	if f == nil || f.header == nil {
		return nil, errors.New("upload: file has no content")
	}
	return f.header.Open()
}

// String returns the file name.
func (f *File) String() string {
	if f == nil {
		return ""
	}
	return f.Filename
}

// FromHeader builds a handle from a multipart header.
func FromHeader(field string, fh *multipart.FileHeader) *File {
	if fh == nil {
		return nil
	}
	return &File{
		ID:          uuid.NewString(),
		Field:       field,
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		MIME:        DetectMIME(fh),
		header:      fh,
	}
}

// DetectMIME sniffs the content type of fh from its first bytes.
func DetectMIME(fh *multipart.FileHeader) string {
	if fh == nil {
		return MIMEOctetStream
	}
	f, err := fh.Open()
	if err != nil {
		return MIMEOctetStream
	}
	defer f.Close()

	buf := make([]byte, mimeDetectionBytes)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF && n == 0 {
		return MIMEOctetStream
	}
	if n == 0 {
		return MIMEOctetStream
	}
	return normalizeMIME(http.DetectContentType(buf[:n]))
}

func normalizeMIME(mimeType string) string {
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// HTTPParser parses uploads from a *query.Request.
type HTTPParser struct{}

// NewHTTPParser returns the multipart parser.
func NewHTTPParser() *HTTPParser {
	return &HTTPParser{}
}

// ParseUploads implements form.UploadParser. A single file yields a *File, more
// than one a []any of *File. Fields without files yield nil so the submitted
// value is kept.
func (p *HTTPParser) ParseUploads(q query.Query, name string) (any, error) {
	req, ok := q.(*query.Request)
	if !ok || req.Request() == nil {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedQuery, q)
	}
	r := req.Request()
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[name]
	switch len(headers) {
	case 0:
		return nil, nil
	case 1:
		return FromHeader(name, headers[0]), nil
	}
	files := make([]any, 0, len(headers))
	for _, fh := range headers {
		files = append(files, FromHeader(name, fh))
	}
	return files, nil
}

// WithHTTP registers the multipart parser for HTTP queries.
func WithHTTP() form.Option {
	return form.WithUploadParser(query.TypeHTTP, NewHTTPParser())
}

var _ form.UploadParser = (*HTTPParser)(nil)
