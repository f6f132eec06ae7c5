package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jacksonlee411/Groves-And-Gates/internal/routing"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/authz"
)

func loadAuthorizer() (*authz.Authorizer, error) {
	modelPath := os.Getenv("AUTHZ_MODEL_PATH")
	if modelPath == "" {
		p, err := defaultAuthzModelPath()
		if err != nil {
			return nil, err
		}
		modelPath = p
	}

	policyPath := os.Getenv("AUTHZ_POLICY_PATH")
	if policyPath == "" {
		p, err := defaultAuthzPolicyPath()
		if err != nil {
			return nil, err
		}
		policyPath = p
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}

	return authz.NewAuthorizer(modelPath, policyPath, mode)
}

func defaultAuthzModelPath() (string, error) {
	path := "config/access/model.conf"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: authz model not found")
}

func defaultAuthzPolicyPath() (string, error) {
	path := "config/access/policy.csv"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: authz policy not found")
}

type authorizer interface {
	Authorize(subject string, object string, action string) (allowed bool, enforced bool, err error)
}

// withAuthz gates routes on the caller's platform role. This is coarse
// edge policy only; the per-entity decision happens in the evaluator.
func withAuthz(a authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		object, action, shouldCheck := authzRequirementForRoute(r.Method, path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		roleSlug := authz.RoleAnonymous
		if p, ok := currentPrincipal(r.Context()); ok {
			roleSlug = p.RoleSlug
		}

		allowed, enforced, err := a.Authorize(authz.SubjectFromRoleSlug(roleSlug), object, action)
		if err != nil {
			routing.WriteError(w, r, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if enforced && !allowed {
			routing.WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func authzRequirementForRoute(method string, path string) (object string, action string, ok bool) {
	switch path {
	case "/api/access/check":
		if method == http.MethodPost {
			return authz.ObjectAccessCheck, authz.ActionRead, true
		}
		return "", "", false
	case "/api/entity-acl/override", "/api/entity-acl/update", "/api/entity-acl/restore":
		if method == http.MethodPost {
			return authz.ObjectEntityACL, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/entity-acl":
		if method == http.MethodGet {
			return authz.ObjectEntityACL, authz.ActionRead, true
		}
		return "", "", false
	case "/api/entity/benefactor":
		if method == http.MethodGet {
			return authz.ObjectEntityBenefactor, authz.ActionRead, true
		}
		return "", "", false
	case "/api/entity/permissions", "/api/entity/nonvisible-children":
		if method == http.MethodGet {
			return authz.ObjectEntityPermissions, authz.ActionRead, true
		}
		return "", "", false
	case "/api/access-requirements/create":
		if method == http.MethodPost {
			return authz.ObjectAccessRequirements, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/access-requirements/unmet":
		if method == http.MethodGet {
			return authz.ObjectAccessRequirements, authz.ActionRead, true
		}
		return "", "", false
	case "/api/access-approvals/create":
		if method == http.MethodPost {
			return authz.ObjectAccessApprovals, authz.ActionWrite, true
		}
		return "", "", false
	case "/internal/access-rules/evaluate":
		if method == http.MethodPost {
			return authz.ObjectAccessRules, authz.ActionAdmin, true
		}
		return "", "", false
	default:
		return "", "", false
	}
}
