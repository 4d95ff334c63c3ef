package query

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
)

// DefaultMaxMemory bounds the in-memory part of multipart parsing.
const DefaultMaxMemory int64 = 32 << 20

// Request adapts an *http.Request. URL query values and body form values are
// merged the way net/http does for Request.Form; uploaded file names are
// reported as present so the submission gate and upload parsers can see them.
type Request struct {
	req *http.Request
	err error
}

// FromRequest parses r (urlencoded or multipart) and returns a Query over it.
// Parse failures are reported lazily through Names so the form pipeline can
// treat them as a malformed query.
func FromRequest(r *http.Request) *Request {
	return FromRequestWithMemory(r, DefaultMaxMemory)
}

// FromRequestWithMemory is FromRequest with an explicit multipart memory
// limit.
func FromRequestWithMemory(r *http.Request, maxMemory int64) *Request {
	q := &Request{req: r}
	if r == nil {
		q.err = fmt.Errorf("%w: nil request", ErrMalformed)
		return q
	}
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			q.err = fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return q
	}
	if err := r.ParseForm(); err != nil {
		q.err = fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return q
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// Request returns the underlying request.
func (q *Request) Request() *http.Request {
	return q.req
}

// Has implements Query.
func (q *Request) Has(name string) bool {
	if q.err != nil {
		return false
	}
	if len(q.req.Form[name]) > 0 {
		return true
	}
	return len(q.files(name)) > 0
}

// Names implements Query.
func (q *Request) Names() ([]string, error) {
	if q.err != nil {
		return nil, q.err
	}
	seen := make(map[string]struct{})
	for name, values := range q.req.Form {
		if len(values) > 0 {
			seen[name] = struct{}{}
		}
	}
	if q.req.MultipartForm != nil {
		for name, files := range q.req.MultipartForm.File {
			if len(files) > 0 {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Values implements Query. Uploaded files are returned as their file names;
// upload parsers replace them with handles.
func (q *Request) Values(name string) []any {
	if q.err != nil {
		return nil
	}
	var out []any
	for _, value := range q.req.Form[name] {
		out = append(out, value)
	}
	for _, header := range q.files(name) {
		out = append(out, header.Filename)
	}
	return out
}

// Type implements Typer.
func (*Request) Type() string { return TypeHTTP }

func (q *Request) files(name string) []*multipart.FileHeader {
	if q.req.MultipartForm == nil {
		return nil
	}
	return q.req.MultipartForm.File[name]
}
