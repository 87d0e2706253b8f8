package handler_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rangd/rangd/pkg/handler"
)

//go:generate mockgen -package handler_test -source store.go -destination=store_mock_test.go

type httpTest struct {
	Name string

	Method string
	URL    string

	ReqHeader map[string]string

	Code      int
	ResBody   string
	ResHeader map[string]string
}

func (test *httpTest) Run(handler http.Handler, t *testing.T) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(test.Method, test.URL, nil)
	req.RequestURI = test.URL

	// Add headers
	for key, value := range test.ReqHeader {
		req.Header.Set(key, value)
	}

	req.Host = "rangd.example"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != test.Code {
		t.Errorf("Expected %v %s as status code (got %v %s)", test.Code, http.StatusText(test.Code), w.Code, http.StatusText(w.Code))
	}

	for key, value := range test.ResHeader {
		header := w.Header().Get(key)

		if value != header {
			t.Errorf("Expected '%s' as '%s' (got '%s')", value, key, header)
		}
	}

	if test.ResBody != "" && w.Body.String() != test.ResBody {
		t.Errorf("Expected '%s' as body (got '%s'", test.ResBody, w.Body.String())
	}

	return w
}

// testResource is a byte slice backed resource. If openReader is set, it is
// used instead of the default reader over content, which allows tests to
// inject blocking or failing readers.
type testResource struct {
	info       handler.ResourceInfo
	content    []byte
	openReader func(ctx context.Context, offset int64) (io.ReadCloser, error)
}

func newTestResource(id string, content []byte, contentType string) *testResource {
	return &testResource{
		info: handler.ResourceInfo{
			ID:          id,
			Size:        int64(len(content)),
			ModTime:     time.Unix(1700000000, 0),
			ContentType: contentType,
		},
		content: content,
	}
}

func (res *testResource) Info() handler.ResourceInfo {
	return res.info
}

func (res *testResource) Reader(ctx context.Context, offset int64) (io.ReadCloser, error) {
	if res.openReader != nil {
		return res.openReader(ctx, offset)
	}
	return io.NopCloser(bytes.NewReader(res.content[offset:])), nil
}

// etagFor mirrors the validator format of the handler, so tests can build
// matching If-None-Match headers.
func etagFor(res *testResource) string {
	return fmt.Sprintf("\"%x-%x\"", res.info.Size, res.info.ModTime.UnixNano())
}

// gatedReader blocks its first Read until release is closed, keeping the
// transfer slot occupied for as long as the test needs.
type gatedReader struct {
	content []byte
	pos     int

	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedReader(content []byte) *gatedReader {
	return &gatedReader{
		content: content,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *gatedReader) Read(p []byte) (int, error) {
	r.once.Do(func() {
		close(r.started)
	})
	<-r.release

	if r.pos >= len(r.content) {
		return 0, io.EOF
	}
	n := copy(p, r.content[r.pos:])
	r.pos += n
	return n, nil
}

func (r *gatedReader) Close() error {
	return nil
}

// failingReader fails every Read with the given error.
type failingReader struct {
	err error
}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, r.err
}

func (r *failingReader) Close() error {
	return nil
}
