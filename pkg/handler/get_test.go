package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	. "github.com/rangd/rangd/pkg/handler"
)

func TestGet(t *testing.T) {
	SubTest(t, "FullDownload", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ResHeader: map[string]string{
				"Content-Length": "11",
				"Content-Type":   "video/mp4",
				"Accept-Ranges":  "bytes",
				"ETag":           etagFor(res),
				"Cache-Control":  "public, max-age=31536000",
			},
			Code:    http.StatusOK,
			ResBody: "hello world",
		}).Run(handler, t)
	})

	SubTest(t, "NestedIdentifier", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("trailers/clip.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "trailers/clip.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method:  "GET",
			URL:     "/trailers/clip.mp4",
			Code:    http.StatusOK,
			ResBody: "hello world",
		}).Run(handler, t)
	})

	SubTest(t, "PartialDownload", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ReqHeader: map[string]string{
				"Range": "bytes=0-4",
			},
			ResHeader: map[string]string{
				"Content-Length": "5",
				"Content-Range":  "bytes 0-4/11",
				"Accept-Ranges":  "bytes",
			},
			Code:    http.StatusPartialContent,
			ResBody: "hello",
		}).Run(handler, t)
	})

	SubTest(t, "OpenEndedRange", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ReqHeader: map[string]string{
				"Range": "bytes=6-",
			},
			ResHeader: map[string]string{
				"Content-Length": "5",
				"Content-Range":  "bytes 6-10/11",
			},
			Code:    http.StatusPartialContent,
			ResBody: "world",
		}).Run(handler, t)
	})

	SubTest(t, "SuffixRange", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ReqHeader: map[string]string{
				"Range": "bytes=-5",
			},
			ResHeader: map[string]string{
				"Content-Length": "5",
				"Content-Range":  "bytes 6-10/11",
			},
			Code:    http.StatusPartialContent,
			ResBody: "world",
		}).Run(handler, t)
	})

	SubTest(t, "ClampedRange", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ReqHeader: map[string]string{
				"Range": "bytes=10-2000",
			},
			ResHeader: map[string]string{
				"Content-Length": "1",
				"Content-Range":  "bytes 10-10/11",
			},
			Code:    http.StatusPartialContent,
			ResBody: "d",
		}).Run(handler, t)
	})

	SubTest(t, "UnsatisfiableRange", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ReqHeader: map[string]string{
				"Range": "bytes=11-12",
			},
			ResHeader: map[string]string{
				"Content-Range": "bytes */11",
			},
			Code:    http.StatusRequestedRangeNotSatisfiable,
			ResBody: "ERR_RANGE_NOT_SATISFIABLE: requested range not satisfiable\n",
		}).Run(handler, t)
	})

	SubTest(t, "MultiRangeRejected", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ReqHeader: map[string]string{
				"Range": "bytes=0-1,4-5",
			},
			ResHeader: map[string]string{
				"Content-Range": "bytes */11",
			},
			Code:    http.StatusRequestedRangeNotSatisfiable,
			ResBody: "ERR_RANGE_NOT_SATISFIABLE: requested range not satisfiable\n",
		}).Run(handler, t)
	})

	SubTest(t, "MalformedRangeIgnored", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/movie.mp4",
			ReqHeader: map[string]string{
				"Range": "bytes=abc-def",
			},
			ResHeader: map[string]string{
				"Content-Length": "11",
			},
			Code:    http.StatusOK,
			ResBody: "hello world",
		}).Run(handler, t)
	})

	SubTest(t, "NotFound", func(t *testing.T, store *MockResourceStore) {
		store.EXPECT().Resolve(gomock.Any(), "missing.bin").Return(nil, ErrNotFound)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method:  "GET",
			URL:     "/missing.bin",
			Code:    http.StatusNotFound,
			ResBody: "ERR_RESOURCE_NOT_FOUND: resource not found\n",
		}).Run(handler, t)
	})

	SubTest(t, "ForbiddenPathLooksLikeNotFound", func(t *testing.T, store *MockResourceStore) {
		store.EXPECT().Resolve(gomock.Any(), "../etc/passwd").Return(nil, ErrForbiddenPath)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method:  "GET",
			URL:     "/../etc/passwd",
			Code:    http.StatusNotFound,
			ResBody: "ERR_PATH_OUTSIDE_ROOT: resource not found\n",
		}).Run(handler, t)
	})

	SubTest(t, "EmptyResource", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("empty.bin", []byte{}, "application/octet-stream")

		store.EXPECT().Resolve(gomock.Any(), "empty.bin").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/empty.bin",
			ResHeader: map[string]string{
				"Content-Length": "0",
			},
			Code: http.StatusOK,
		}).Run(handler, t)
	})

	SubTest(t, "EmptyResourceWithRange", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("empty.bin", []byte{}, "application/octet-stream")

		store.EXPECT().Resolve(gomock.Any(), "empty.bin").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method: "GET",
			URL:    "/empty.bin",
			ReqHeader: map[string]string{
				"Range": "bytes=0-",
			},
			ResHeader: map[string]string{
				"Content-Range": "bytes */0",
			},
			Code: http.StatusRequestedRangeNotSatisfiable,
		}).Run(handler, t)
	})

	SubTest(t, "ReaderOpenError", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")
		res.openReader = func(ctx context.Context, offset int64) (io.ReadCloser, error) {
			return nil, errors.New("disk gone")
		}

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method:  "GET",
			URL:     "/movie.mp4",
			Code:    http.StatusInternalServerError,
			ResBody: "ERR_INTERNAL_SERVER_ERROR: internal server error\n",
		}).Run(handler, t)
	})

	SubTest(t, "ReadFailureBeforeFirstByte", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")
		res.openReader = func(ctx context.Context, offset int64) (io.ReadCloser, error) {
			return &failingReader{err: errors.New("input/output error")}, nil
		}

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method:  "GET",
			URL:     "/movie.mp4",
			Code:    http.StatusInternalServerError,
			ResBody: "ERR_RESOURCE_READ: unable to read resource\n",
		}).Run(handler, t)

		if active := handler.ActiveTransfers(); active != 0 {
			t.Errorf("Expected no active transfers after failure (got %d)", active)
		}
	})

	SubTest(t, "ShorterThanMetadata", func(t *testing.T, store *MockResourceStore) {
		res := newTestResource("movie.mp4", []byte("hello world"), "video/mp4")
		res.openReader = func(ctx context.Context, offset int64) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte("hel"))), nil
		}

		store.EXPECT().Resolve(gomock.Any(), "movie.mp4").Return(res, nil)

		handler, _ := NewHandler(Config{
			Store: store,
		})

		(&httpTest{
			Method:  "GET",
			URL:     "/movie.mp4",
			Code:    http.StatusInternalServerError,
			ResBody: "ERR_RESOURCE_READ: unable to read resource\n",
		}).Run(handler, t)
	})
}
