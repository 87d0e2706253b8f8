package handler

import (
	"net/http"
	"strconv"
	"time"
)

// assembleResponse composes the status code and header set for a successful
// body-carrying response: 200 with the full length, or 206 with the
// Content-Range of the validated interval.
func assembleResponse(info ResourceInfo, spec *RangeSpec, etag string, cacheControl string) HTTPResponse {
	resp := HTTPResponse{
		StatusCode: http.StatusOK,
		Header: HTTPHeader{
			"Content-Type":   info.ContentType,
			"Content-Length": strconv.FormatInt(info.Size, 10),
			"Accept-Ranges":  "bytes",
			"ETag":           etag,
			"Cache-Control":  cacheControl,
		},
	}

	if spec != nil {
		resp.StatusCode = http.StatusPartialContent
		resp.Header["Content-Range"] = spec.ContentRange(info.Size)
		resp.Header["Content-Length"] = strconv.FormatInt(spec.Length(), 10)
	}

	return resp
}

// notModifiedResponse composes a 304. It deliberately carries no
// Content-Length and no Content-Range, only the validator and cache policy.
func notModifiedResponse(etag string, cacheControl string) HTTPResponse {
	return HTTPResponse{
		StatusCode: http.StatusNotModified,
		Header: HTTPHeader{
			"ETag":          etag,
			"Cache-Control": cacheControl,
		},
	}
}

// retryAfterSeconds formats a duration for the Retry-After header, rounding
// up so a sub-second configuration never yields "0".
func retryAfterSeconds(d time.Duration) string {
	seconds := int64((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}
