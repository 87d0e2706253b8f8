package handler

import (
	"net/http"
)

// Handler is a ready to use handler with routing.
type Handler struct {
	*UnroutedHandler
	http.Handler
}

// NewHandler creates a routed handler serving byte-range requests. This is
// the simplest way to use the package but may not be as configurable as you
// require. If you are integrating this into an existing app you may like to
// use NewUnroutedHandler instead and combine its ServeResource method with
// your existing router.
func NewHandler(config Config) (*Handler, error) {
	handler, err := NewUnroutedHandler(config)
	if err != nil {
		return nil, err
	}

	routedHandler := &Handler{
		UnroutedHandler: handler,
	}

	mux := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every path below the mount point is a resource identifier; the
		// Middleware has already filtered the method down to GET and HEAD.
		handler.ServeResource(w, r)
	})

	routedHandler.Handler = handler.Middleware(mux)

	return routedHandler, nil
}
