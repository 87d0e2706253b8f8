package cli

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"

	"github.com/go-chi/chi/v5"
)

func SetupPprof(router chi.Router) {
	runtime.SetBlockProfileRate(Flags.PprofBlockProfileRate)
	runtime.SetMutexProfileFraction(Flags.PprofMutexProfileRate)

	basePath := strings.TrimSuffix(Flags.PprofPath, "/")

	router.Route(basePath, func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
			pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
		})
	})
}
