package handler

import (
	"net/http"
	"strconv"
)

// HTTPHeader carries response headers as plain strings.
type HTTPHeader map[string]string

// HTTPResponse contains basic details of an outgoing HTTP response.
type HTTPResponse struct {
	// StatusCode is the status code, e.g. 206 or 416.
	StatusCode int
	// Body is the response body. It is only used for error responses;
	// resource bytes are streamed separately after writeTo.
	Body string
	// Header contains additional HTTP headers for the response.
	Header HTTPHeader
}

// writeTo writes the headers and status code into w, as specified by the
// fields in resp, followed by the body if one is set.
func (resp HTTPResponse) writeTo(w http.ResponseWriter) {
	headers := w.Header()
	for key, value := range resp.Header {
		headers.Set(key, value)
	}

	if len(resp.Body) > 0 {
		headers.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}

	w.WriteHeader(resp.StatusCode)

	if len(resp.Body) > 0 {
		w.Write([]byte(resp.Body))
	}
}

// MergeWith returns a copy of resp1, where non-default values from resp2
// overwrite values from resp1.
func (resp1 HTTPResponse) MergeWith(resp2 HTTPResponse) HTTPResponse {
	newResp := resp1

	if resp2.StatusCode != 0 {
		newResp.StatusCode = resp2.StatusCode
	}

	if len(resp2.Body) > 0 {
		newResp.Body = resp2.Body
	}

	// The header map must be copied so that merging never writes into the
	// map of either input.
	newResp.Header = make(HTTPHeader, len(resp1.Header)+len(resp2.Header))

	for key, value := range resp1.Header {
		newResp.Header[key] = value
	}

	for key, value := range resp2.Header {
		newResp.Header[key] = value
	}

	return newResp
}
