package upload_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/query"
	"github.com/goliatone/go-formproc/pkg/upload"
)

func multipartRequest(t *testing.T, fields map[string]string, files map[string][]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	for name, contents := range files {
		for i, content := range contents {
			part, err := writer.CreateFormFile(name, name+string(rune('a'+i))+".txt")
			require.NoError(t, err)
			_, err = part.Write([]byte(content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHTTPParserSingleFile(t *testing.T) {
	t.Parallel()

	req := multipartRequest(t, map[string]string{"title": "report"}, map[string][]string{
		"attachment": {"hello world"},
	})
	f := form.New(upload.WithHTTP()).AddField(
		form.NewField("title"),
		&form.Field{Name: "attachment", Upload: true},
	)

	require.NoError(t, f.Process(query.FromRequest(req)))
	require.True(t, f.SubmittedAndValid())

	file, ok := f.ParamValue("attachment").(*upload.File)
	require.True(t, ok, "expected *upload.File, got %T", f.ParamValue("attachment"))
	assert.Equal(t, "attachmenta.txt", file.Filename)
	assert.Equal(t, "attachment", file.Field)
	assert.Equal(t, int64(len("hello world")), file.Size)
	assert.Equal(t, "text/plain", file.MIME)
	assert.NotEmpty(t, file.ID)

	rc, err := file.Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestHTTPParserMultipleFiles(t *testing.T) {
	t.Parallel()

	req := multipartRequest(t, nil, map[string][]string{
		"docs": {"one", "two"},
	})
	f := form.New(upload.WithHTTP()).AddField(&form.Field{Name: "docs", Upload: true, MultiValue: true})

	require.NoError(t, f.Process(query.FromRequest(req)))

	files := f.ParamArray("docs")
	require.Len(t, files, 2)
	first, ok := files[0].(*upload.File)
	require.True(t, ok)
	second, ok := files[1].(*upload.File)
	require.True(t, ok)
	assert.Equal(t, "docsa.txt", first.Filename)
	assert.Equal(t, "docsb.txt", second.Filename)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestHTTPParserSingleFileKeepsListShape(t *testing.T) {
	t.Parallel()

	req := multipartRequest(t, nil, map[string][]string{
		"docs": {"only"},
	})
	f := form.New(upload.WithHTTP()).AddField(&form.Field{Name: "docs", Upload: true, MultiValue: true})

	require.NoError(t, f.Process(query.FromRequest(req)))

	list, ok := f.Param("docs").([]any)
	require.True(t, ok, "multi-valued upload should stay a list, got %T", f.Param("docs"))
	require.Len(t, list, 1)
	file, ok := list[0].(*upload.File)
	require.True(t, ok)
	assert.Equal(t, "docsa.txt", file.Filename)
}

func TestHTTPParserRejectsOtherQueries(t *testing.T) {
	t.Parallel()

	_, err := upload.NewHTTPParser().ParseUploads(query.FromValues(url.Values{"a": {"b"}}), "a")
	assert.ErrorIs(t, err, upload.ErrUnsupportedQuery)

	// a failing parser keeps the submitted value
	f := form.New(upload.WithHTTP(), form.WithQueryType(query.TypeHTTP)).AddField(
		&form.Field{Name: "avatar", Upload: true},
	)
	require.NoError(t, f.Process(query.FromValues(url.Values{"avatar": {"me.png"}})))
	assert.Equal(t, "me.png", f.ParamValue("avatar"))
}

func TestDetectMIMENil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, upload.MIMEOctetStream, upload.DetectMIME(nil))
	assert.Nil(t, upload.FromHeader("x", nil))
}
