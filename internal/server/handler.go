package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jacksonlee411/Groves-And-Gates/internal/routing"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/ports"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/infrastructure/persistence"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/services"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

type HandlerOptions struct {
	TreeStore          ports.TreeStore
	BenefactorStore    ports.BenefactorStore
	ACLStore           ports.ACLStore
	RequirementStore   ports.RequirementStore
	Evaluator          services.AuthorizationEvaluator
	Resolver           services.InheritanceResolver
	RequirementService services.AccessRequirementService
	Platform           *PlatformConfig
	Authorizer         authorizer
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := defaultAllowlistPath()
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}

	classifier, err := routing.NewClassifier(a, "server")
	if err != nil {
		return nil, err
	}

	router := routing.NewRouter(classifier)

	cfg := PlatformConfig{}
	if opts.Platform != nil {
		cfg = *opts.Platform
	} else {
		path := os.Getenv("PLATFORM_CONFIG_PATH")
		if path == "" {
			path, err = defaultPlatformConfigPath()
			if err != nil {
				return nil, err
			}
		}
		cfg, err = LoadPlatformConfig(path)
		if err != nil {
			return nil, err
		}
	}

	evaluator := opts.Evaluator
	resolver := opts.Resolver
	requirementService := opts.RequirementService
	if evaluator == nil || resolver == nil || requirementService == nil {
		tree := opts.TreeStore
		benefactors := opts.BenefactorStore
		acls := opts.ACLStore
		requirements := opts.RequirementStore
		if tree == nil || benefactors == nil || acls == nil || requirements == nil {
			pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
			if err != nil {
				return nil, err
			}
			pgStore := persistence.NewEntityPGStore(pool)
			if tree == nil {
				tree = pgStore
			}
			if benefactors == nil {
				benefactors = pgStore
			}
			if acls == nil {
				acls = pgStore
			}
			if requirements == nil {
				requirements = pgStore
			}
		}

		gate := services.NewRequirementGate(tree, requirements)
		if evaluator == nil {
			evaluator = services.NewAuthorizationEvaluator(tree, benefactors, acls, requirements, gate, cfg.Policy())
		}
		if resolver == nil {
			resolver = services.NewInheritanceResolver(tree, benefactors, acls, evaluator)
		}
		if requirementService == nil {
			requirementService = services.NewAccessRequirementService(requirements, gate)
		}
	}

	platformAuthorizer := opts.Authorizer
	if platformAuthorizer == nil {
		az, err := loadAuthorizer()
		if err != nil {
			return nil, err
		}
		platformAuthorizer = az
	}

	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/access/check", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAccessCheckAPI(w, r, evaluator, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/entity/benefactor", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleBenefactorAPI(w, r, resolver)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/entity/permissions", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlePermissionsAPI(w, r, evaluator, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/entity/nonvisible-children", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleNonvisibleChildrenAPI(w, r, evaluator, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/entity-acl", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleACLGetAPI(w, r, resolver, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/entity-acl/override", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleACLOverrideAPI(w, r, resolver, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/entity-acl/update", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleACLUpdateAPI(w, r, resolver, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/entity-acl/restore", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleACLRestoreAPI(w, r, resolver, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/access-requirements/create", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRequirementCreateAPI(w, r, requirementService, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/access-requirements/unmet", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleUnmetRequirementsAPI(w, r, requirementService, cfg)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/access-approvals/create", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleApprovalCreateAPI(w, r, requirementService, cfg)
	}))
	router.Handle(routing.RouteClassInternalAPI, http.MethodPost, "/internal/access-rules/evaluate", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAccessRulesEvaluateAPI(w, r, cfg)
	}))

	guarded := withIdentity(withAuthz(platformAuthorizer, router))

	mux := http.NewServeMux()
	mux.Handle("/", guarded)
	return mux, nil
}

func MustNewHandler() http.Handler {
	h, err := NewHandler()
	if err != nil {
		panic(errors.New("server: failed to build handler: " + err.Error()))
	}
	return h
}

// NewMux is the cmd/server entry point.
func NewMux() http.Handler {
	return MustNewHandler()
}

func defaultAllowlistPath() (string, error) {
	path := "config/routing/allowlist.yaml"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: allowlist not found")
}
