package routing

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Allowlist is the startup contract for the HTTP surface: every route the
// server registers must be declared here with its route class. The file is
// reviewed like code; a route missing from it fails registration.
type Allowlist struct {
	Version int     `yaml:"version"`
	Service string  `yaml:"service"`
	Routes  []Route `yaml:"routes"`
}

type Route struct {
	Path       string   `yaml:"path"`
	Methods    []string `yaml:"methods"`
	RouteClass string   `yaml:"route_class"`
}

func ParseAllowlistYAML(b []byte) (Allowlist, error) {
	var a Allowlist
	if err := yaml.Unmarshal(b, &a); err != nil {
		return Allowlist{}, err
	}
	if a.Version != 1 {
		return Allowlist{}, errors.New("allowlist: unsupported version")
	}
	if a.Service == "" {
		return Allowlist{}, errors.New("allowlist: missing service")
	}
	if len(a.Routes) == 0 {
		return Allowlist{}, errors.New("allowlist: no routes")
	}
	return a, nil
}

func LoadAllowlist(path string) (Allowlist, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Allowlist{}, err
	}
	return ParseAllowlistYAML(b)
}
