package handler

import (
	"errors"
	"io"
	"net/http"
)

// streamChunkSize is the fixed copy increment. Per-transfer memory stays at
// one chunk regardless of how large the requested interval is.
const streamChunkSize = 256 * 1024

var errServerShutdown = errors.New("server is shutting down")

// readFailure marks an error on the resource side of the copy. If it occurs
// before any byte reached the client, the request can still be answered with
// a proper status code.
type readFailure struct {
	err error
}

func (e *readFailure) Error() string {
	return "resource read failed: " + e.err.Error()
}

func (e *readFailure) Unwrap() error {
	return e.err
}

// writeFailure marks an error on the client side of the copy, typically a
// disconnect or a network timeout. No status change is possible once it
// occurs because the response has already started.
type writeFailure struct {
	err error
}

func (e *writeFailure) Error() string {
	return "client write failed: " + e.err.Error()
}

func (e *writeFailure) Unwrap() error {
	return e.err
}

// readChunk fills buf as far as the reader allows. A clean end of input is
// reported as io.EOF together with the bytes read so far.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, io.EOF
	}
	return n, err
}

// streamBody copies exactly length bytes from src into the response,
// writing resp's status and headers first. The first chunk is read before
// the headers are flushed, so a resource that fails or turns out shorter
// than its metadata can still be answered with a 500 instead of a truncated
// body. Bytes are written in strictly increasing offset order with no gaps
// or repeats.
//
// Between chunks the request context and the server shutdown channel are
// checked, so a client disconnect stops the copy within one chunk cycle and
// no further bytes are read from the resource. Backpressure is inherited
// from the blocking Write of the underlying connection; the streamer never
// buffers more than one chunk ahead of the client.
func (handler *UnroutedHandler) streamBody(c *httpContext, resp HTTPResponse, src io.Reader, length int64, session *TransferSession) (int64, error) {
	limited := io.LimitReader(src, length)
	buf := make([]byte, streamChunkSize)

	n, rerr := readChunk(limited, buf)
	if rerr != nil && rerr != io.EOF {
		return 0, &readFailure{rerr}
	}
	if rerr == io.EOF && int64(n) < length {
		// The resource ended before the interval its metadata promised.
		return 0, &readFailure{io.ErrUnexpectedEOF}
	}

	resp.writeTo(c.res)
	session.markStreaming()

	flusher, _ := c.res.(http.Flusher)

	var written int64
	for {
		nw, werr := c.res.Write(buf[:n])
		written += int64(nw)
		session.progress(nw)
		if werr != nil {
			return written, &writeFailure{werr}
		}
		if flusher != nil {
			flusher.Flush()
		}

		if written >= length {
			return written, nil
		}

		select {
		case <-c.Done():
			return written, &writeFailure{c.Err()}
		case <-handler.serverCtx:
			return written, &writeFailure{errServerShutdown}
		default:
		}

		n, rerr = readChunk(limited, buf)
		if rerr != nil && rerr != io.EOF {
			return written, &readFailure{rerr}
		}
		if n == 0 {
			return written, &readFailure{io.ErrUnexpectedEOF}
		}
	}
}
