package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

var (
	ErrNotFound            = NewError("ERR_RESOURCE_NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrForbiddenPath       = NewError("ERR_PATH_OUTSIDE_ROOT", "resource not found", http.StatusNotFound)
	ErrMethodNotAllowed    = NewError("ERR_METHOD_NOT_ALLOWED", "method not allowed", http.StatusMethodNotAllowed)
	ErrRangeNotSatisfiable = NewError("ERR_RANGE_NOT_SATISFIABLE", "requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
	ErrTooManyTransfers    = NewError("ERR_TOO_MANY_TRANSFERS", "too many concurrent transfers", http.StatusServiceUnavailable)
	ErrResourceRead        = NewError("ERR_RESOURCE_READ", "unable to read resource", http.StatusInternalServerError)

	// Errors for read timeouts and connection resets contain TCP details we
	// do not want to group metrics by, so they are replaced with common
	// messages before being counted.
	ErrReadTimeout     = NewError("ERR_READ_TIMEOUT", "timeout while serving request", http.StatusInternalServerError)
	ErrConnectionReset = NewError("ERR_CONNECTION_RESET", "TCP connection reset by peer", http.StatusInternalServerError)
)

// UnroutedHandler exposes methods to handle requests for byte-range
// resource delivery, such as ServeResource. It expects to be mounted behind
// a router (aka mux) of your choice; if you are looking for a preconfigured
// handler see NewHandler.
type UnroutedHandler struct {
	config    Config
	store     ResourceStore
	governor  *Governor
	logger    *slog.Logger
	serverCtx chan struct{}

	// Metrics provides numbers of the usage for this handler.
	Metrics Metrics
}

// NewUnroutedHandler creates a new handler without routing using the given
// configuration. It exposes the http handlers which need to be combined
// with a router of your choice.
func NewUnroutedHandler(config Config) (*UnroutedHandler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	handler := &UnroutedHandler{
		config:    config,
		store:     config.Store,
		governor:  newGovernor(config.MaxConcurrentTransfers),
		logger:    config.Logger,
		serverCtx: make(chan struct{}),
		Metrics:   newMetrics(),
	}

	go handler.governor.sweepLoop(handler.serverCtx, config.SweepInterval, config.IdleTimeout, handler.logger)

	return handler, nil
}

// InterruptRequestHandling attempts to interrupt long running transfers, so
// the server can shut down gracefully. This function should not be used on
// its own, but as part of http.Server.Shutdown. For example:
//
//	server := &http.Server{
//		Handler: handler,
//	}
//	server.RegisterOnShutdown(handler.InterruptRequestHandling)
//	server.Shutdown(ctx)
func (handler *UnroutedHandler) InterruptRequestHandling() {
	close(handler.serverCtx)
}

// ActiveTransfers returns the number of currently streaming sessions.
func (handler *UnroutedHandler) ActiveTransfers() int {
	return handler.governor.Active()
}

// Sessions returns diagnostic snapshots of all live transfer sessions.
func (handler *UnroutedHandler) Sessions() []SessionSnapshot {
	return handler.governor.Snapshot()
}

// Middleware logs incoming requests, counts them and rejects methods other
// than GET and HEAD. Wrap the resource endpoints in it when combining the
// handler with your own router.
func (handler *UnroutedHandler) Middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := handler.newContext(w, r)

		handler.logger.Info("RequestIncoming", "method", r.Method, "path", r.URL.Path, "requestId", getRequestId(r))

		handler.Metrics.incRequestsTotal(r.Method)

		// Add nosniff to all responses https://golang.org/src/net/http/server.go#L1429
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			handler.sendError(c, ErrMethodNotAllowed)
			return
		}

		h.ServeHTTP(w, r)
	})
}

// ServeResource handles a GET or HEAD request for a byte range of a
// resource. The flow is: resolve metadata, short-circuit on a matching
// conditional request, validate the Range header, pass admission control
// and stream the interval. Release of the admission slot is tied to the
// session's terminal transition and runs exactly once no matter which code
// path ends the transfer.
func (handler *UnroutedHandler) ServeResource(w http.ResponseWriter, r *http.Request) {
	c := handler.newContext(w, r)

	id, err := extractIDFromPath(r.URL.Path)
	if err != nil {
		handler.sendError(c, err)
		return
	}

	resource, err := handler.store.Resolve(c, id)
	if err != nil {
		if errors.Is(err, ErrForbiddenPath) {
			handler.logger.Warn("PathEscapeRejected", "id", id, "requestId", getRequestId(r))
		} else if errors.Is(err, ErrNotFound) {
			handler.logger.Debug("ResourceNotFound", "id", id)
		}
		handler.sendError(c, err)
		return
	}
	info := resource.Info()
	etag := formatETag(info)

	// A matching conditional request is answered before any range
	// validation or admission control runs; no byte access happens at all.
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		handler.sendResp(c, notModifiedResponse(etag, handler.config.CacheControl))
		return
	}

	rangeSpec, err := ParseRange(r.Header.Get("Range"), info.Size)
	if err != nil {
		switch {
		case errors.Is(err, ErrRangeMalformed):
			// An unparsable Range header is ignored, not answered with an
			// error status.
			handler.logger.Debug("RangeHeaderIgnored", "id", id, "range", r.Header.Get("Range"))
			rangeSpec = nil
		case errors.Is(err, ErrRangeUnsatisfiable), errors.Is(err, ErrRangeMultipart):
			e := ErrRangeNotSatisfiable
			e.HTTPResponse = e.HTTPResponse.MergeWith(HTTPResponse{
				Header: HTTPHeader{"Content-Range": fmt.Sprintf("bytes */%d", info.Size)},
			})
			handler.sendError(c, e)
			return
		default:
			handler.sendError(c, err)
			return
		}
	}

	resp := assembleResponse(info, rangeSpec, etag, handler.config.CacheControl)

	// HEAD carries the exact headers of the corresponding GET but opens no
	// stream and claims no transfer slot.
	if r.Method == http.MethodHead {
		handler.sendResp(c, resp)
		return
	}

	sessionToken := sessionTokenFromRequest(r)

	ticket, err := handler.governor.TryAdmit(id, sessionToken, rangeSpec)
	if err != nil {
		handler.Metrics.incTransfersRejected()
		handler.logger.Warn("TransferRejected", "id", id, "session", sessionToken, "active", handler.governor.Active(), "max", handler.governor.MaxConcurrent())

		e := ErrTooManyTransfers
		e.HTTPResponse = e.HTTPResponse.MergeWith(HTTPResponse{
			StatusCode: handler.config.RejectionStatus,
			Header:     HTTPHeader{"Retry-After": retryAfterSeconds(handler.config.RetryAfter)},
		})
		handler.sendError(c, e)
		return
	}
	session := ticket.Session()

	outcome := StateAborted
	defer func() {
		ticket.Release(outcome)
	}()

	var offset, length int64
	if rangeSpec != nil {
		offset, length = rangeSpec.Start, rangeSpec.Length()
	} else {
		offset, length = 0, info.Size
	}

	src, err := resource.Reader(c, offset)
	if err != nil {
		handler.sendError(c, err)
		return
	}
	defer src.Close()

	handler.Metrics.incTransfersStarted()
	handler.logger.Info("TransferStarted", "id", id, "session", session.ID, "offset", offset, "length", length)

	bytesSent, streamErr := handler.streamBody(c, resp, src, length, session)
	handler.Metrics.incBytesSent(uint64(bytesSent))

	if streamErr != nil {
		var rf *readFailure
		if errors.As(streamErr, &rf) && bytesSent == 0 {
			// The headers have not been flushed yet, so the failure can
			// still be reported with a proper status code.
			handler.logger.Error("ResourceReadError", "id", id, "session", session.ID, "error", rf.Error())
			handler.sendError(c, ErrResourceRead)
			return
		}

		handler.Metrics.incTransfersAborted()
		if errors.As(streamErr, &rf) {
			// Mid-stream read failures may indicate a systemic problem, but
			// the response has started and no status change is possible.
			handler.logger.Error("TransferReadFailed", "id", id, "session", session.ID, "bytesSent", bytesSent, "error", streamErr.Error())
		} else {
			handler.logger.Info("TransferAborted", "id", id, "session", session.ID, "bytesSent", bytesSent, "reason", streamErr.Error())
		}
		return
	}

	outcome = StateCompleted
	handler.Metrics.incTransfersCompleted()
	handler.logger.Info("TransferCompleted", "id", id, "session", session.ID, "bytesSent", bytesSent)
}

// Send the error in the response body. Unknown error values are mapped to
// a 500 Internal Error response.
func (handler *UnroutedHandler) sendError(c *httpContext, err error) {
	// Errors for network timeouts contain too much information which is
	// not necessary for us and makes grouping for the metrics harder. The
	// error message looks like: read tcp 127.0.0.1:1080->127.0.0.1:53673:
	// i/o timeout. Therefore, we use a common error message for all of them.
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		err = ErrReadTimeout
	}

	if strings.HasSuffix(err.Error(), "read: connection reset by peer") {
		err = ErrConnectionReset
	}

	r := c.req

	detailedErr, ok := err.(Error)
	if !ok {
		handler.logger.Error("InternalServerError", "message", err.Error(), "method", r.Method, "path", r.URL.Path, "requestId", getRequestId(r))
		detailedErr = NewError("ERR_INTERNAL_SERVER_ERROR", "internal server error", http.StatusInternalServerError)
	}

	// If we are sending the response for a HEAD request, ensure that we are
	// not including any response body.
	if r.Method == http.MethodHead {
		detailedErr.HTTPResponse.Body = ""
	}

	handler.sendResp(c, detailedErr.HTTPResponse)
	handler.Metrics.incErrorsTotal(detailedErr)
}

// sendResp writes the header to w with the specified status code.
func (handler *UnroutedHandler) sendResp(c *httpContext, resp HTTPResponse) {
	resp.writeTo(c.res)

	handler.logger.Info("ResponseOutgoing", "status", resp.StatusCode, "method", c.req.Method, "path", c.req.URL.Path, "requestId", getRequestId(c.req))
}

// extractIDFromPath turns the URL path below the mount point into a resource
// identifier. Nested identifiers like "trailers/clip.mp4" are preserved.
func extractIDFromPath(url string) (string, error) {
	id := strings.Trim(url, "/")
	if id == "" {
		return "", ErrNotFound
	}
	return id, nil
}

// sessionTokenFromRequest returns the optional client-supplied correlation
// token. It is recorded for diagnostics only and truncated so clients
// cannot blow up log lines.
func sessionTokenFromRequest(r *http.Request) string {
	token := r.URL.Query().Get("session")
	if len(token) > 64 {
		token = token[:64]
	}
	return token
}

// getRequestId returns the value of the X-Request-ID header, if available,
// and also takes care of truncating the input.
func getRequestId(r *http.Request) string {
	reqId := r.Header.Get("X-Request-ID")
	if reqId == "" {
		return ""
	}

	// Limit the length of the request ID to 36 characters, which is enough
	// to fit a UUID.
	if len(reqId) > 36 {
		reqId = reqId[:36]
	}

	return reqId
}
