package routing

import (
	"errors"
	"strings"
)

// RouteClass partitions the surface this service exposes. There is no HTML
// or asset surface: everything answers JSON.
type RouteClass string

const (
	// RouteClassPublicAPI is reachable through the gateway.
	RouteClassPublicAPI RouteClass = "public_api"
	// RouteClassInternalAPI is cluster-internal, never forwarded by the
	// gateway.
	RouteClassInternalAPI RouteClass = "internal_api"
	// RouteClassOps covers health and readiness probes.
	RouteClassOps RouteClass = "ops"
)

// Classifier answers which class the allowlist declares for a path.
type Classifier struct {
	exact    map[string]RouteClass
	patterns []patternRoute
}

type patternRoute struct {
	pattern routePattern
	rc      RouteClass
}

func NewClassifier(a Allowlist, service string) (*Classifier, error) {
	if a.Service != service {
		return nil, errors.New("allowlist: declared for service " + a.Service + ", not " + service)
	}
	exact := make(map[string]RouteClass, len(a.Routes))
	var patterns []patternRoute
	for _, r := range a.Routes {
		if r.Path == "" || r.RouteClass == "" {
			return nil, errors.New("allowlist: route needs path and route_class")
		}
		if p, ok := parseRoutePattern(r.Path); ok {
			patterns = append(patterns, patternRoute{pattern: p, rc: RouteClass(r.RouteClass)})
			continue
		}
		exact[r.Path] = RouteClass(r.RouteClass)
	}
	return &Classifier{exact: exact, patterns: patterns}, nil
}

// RouteClassFor reports the declared class of a path. ok is false for
// paths the allowlist does not name.
func (c *Classifier) RouteClassFor(path string) (RouteClass, bool) {
	if rc, ok := c.exact[path]; ok {
		return rc, true
	}
	for _, p := range c.patterns {
		if p.pattern.match(path) {
			return p.rc, true
		}
	}
	return "", false
}

// routePattern is a declared path with {param} segments, e.g.
// /internal/entities/{entity_id}/audit. A parameter matches exactly one
// non-empty segment.
type routePattern struct {
	segments []string
}

func parseRoutePattern(raw string) (routePattern, bool) {
	if raw == "" || raw[0] != '/' || !strings.Contains(raw, "{") {
		return routePattern{}, false
	}
	segments := strings.Split(strings.TrimPrefix(raw, "/"), "/")
	for _, s := range segments {
		if s == "" {
			return routePattern{}, false
		}
		if (strings.Contains(s, "{") || strings.Contains(s, "}")) && !isParamSegment(s) {
			return routePattern{}, false
		}
	}
	return routePattern{segments: segments}, true
}

func (p routePattern) match(path string) bool {
	if len(p.segments) == 0 || !strings.HasPrefix(path, "/") {
		return false
	}
	in := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(in) != len(p.segments) {
		return false
	}
	for i, want := range p.segments {
		if in[i] == "" {
			return false
		}
		if isParamSegment(want) {
			continue
		}
		if in[i] != want {
			return false
		}
	}
	return true
}

func isParamSegment(s string) bool {
	return strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && len(s) > 2
}
