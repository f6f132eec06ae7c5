package routing

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
)

// Router dispatches exact paths and enforces the allowlist contract:
// registering a route the allowlist does not declare, or declares with a
// different class, panics at startup.
type Router struct {
	classifier *Classifier
	routes     map[string]map[string]http.Handler
}

func NewRouter(classifier *Classifier) *Router {
	return &Router{
		classifier: classifier,
		routes:     make(map[string]map[string]http.Handler),
	}
}

func (r *Router) Handle(rc RouteClass, method string, path string, h http.Handler) {
	declared, ok := r.classifier.RouteClassFor(path)
	if !ok {
		panic(fmt.Sprintf("routing: %s is not in the allowlist", path))
	}
	if declared != rc {
		panic(fmt.Sprintf("routing: %s registered as %s but declared %s", path, rc, declared))
	}
	if r.routes[path] == nil {
		r.routes[path] = make(map[string]http.Handler)
	}
	r.routes[path][method] = recoverToJSON(h)
}

// recoverToJSON converts a handler panic into a 500 envelope. The stack
// goes to the process log, never to the client.
func recoverToJSON(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v\n%s", req.Method, req.URL.Path, rec, debug.Stack())
				WriteError(w, req, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		h.ServeHTTP(w, req)
	})
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	methods, ok := r.routes[req.URL.Path]
	if !ok {
		WriteError(w, req, http.StatusNotFound, "not_found", "not found")
		return
	}
	h, ok := methods[req.Method]
	if !ok {
		w.Header().Set("Allow", allowHeader(methods))
		WriteError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	h.ServeHTTP(w, req)
}

func allowHeader(methods map[string]http.Handler) string {
	out := make([]string, 0, len(methods))
	for m := range methods {
		out = append(out, m)
	}
	slices.Sort(out)
	return strings.Join(out, ", ")
}
