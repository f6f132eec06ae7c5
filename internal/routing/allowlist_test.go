package routing

import "testing"

func TestParseAllowlistYAML(t *testing.T) {
	t.Parallel()

	a, err := ParseAllowlistYAML([]byte(`
version: 1
service: server
routes:
  - path: /healthz
    methods: [GET]
    route_class: ops
  - path: /api/access/check
    methods: [POST]
    route_class: public_api
`))
	if err != nil {
		t.Fatal(err)
	}
	if a.Service != "server" || len(a.Routes) != 2 {
		t.Fatalf("parsed %+v", a)
	}
	if a.Routes[1].RouteClass != "public_api" {
		t.Fatalf("route_class=%q", a.Routes[1].RouteClass)
	}
}

func TestParseAllowlistYAML_Errors(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"not yaml":        "\xff",
		"bad version":     "version: 2\nservice: server\nroutes: [{path: /x, route_class: ops}]",
		"missing service": "version: 1\nroutes: [{path: /x, route_class: ops}]",
		"no routes":       "version: 1\nservice: server",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAllowlistYAML([]byte(in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
