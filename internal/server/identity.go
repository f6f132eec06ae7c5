package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/jacksonlee411/Groves-And-Gates/internal/routing"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/authz"
)

var (
	errInvalidPrincipalID     = errors.New("invalid principal id header")
	errInvalidPrincipalGroups = errors.New("invalid principal groups header")
)

// The service sits behind the platform gateway, which authenticates the
// session and forwards the caller identity in headers. No header means an
// anonymous request.
const (
	headerPrincipalID        = "X-Principal-Id"
	headerPrincipalGroups    = "X-Principal-Groups"
	headerPrincipalRole      = "X-Principal-Role"
	headerPrincipalCertified = "X-Principal-Certified"
	headerPrincipalToU       = "X-Principal-Tou-Accepted"
)

func withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(headerPrincipalID))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		p, err := principalFromHeaders(r)
		if err != nil {
			routing.WriteError(w, r, http.StatusBadRequest, "invalid_principal_headers", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

func principalFromHeaders(r *http.Request) (Principal, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(headerPrincipalID)), 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, errInvalidPrincipalID
	}

	p := Principal{
		ID:                 id,
		RoleSlug:           strings.TrimSpace(r.Header.Get(headerPrincipalRole)),
		Certified:          headerFlag(r, headerPrincipalCertified),
		AcceptedTermsOfUse: headerFlag(r, headerPrincipalToU),
	}
	if p.RoleSlug == "" {
		p.RoleSlug = authz.RoleMember
	}

	rawGroups := strings.TrimSpace(r.Header.Get(headerPrincipalGroups))
	if rawGroups != "" {
		for _, part := range strings.Split(rawGroups, ",") {
			g, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || g <= 0 {
				return Principal{}, errInvalidPrincipalGroups
			}
			p.Groups = append(p.Groups, g)
		}
	}
	return p, nil
}

func headerFlag(r *http.Request, name string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get(name)), "true")
}
