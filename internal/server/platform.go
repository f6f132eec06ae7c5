package server

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/services"
)

// PlatformConfig is the well-known topology the engine special-cases:
// the forest root, the trash subtree, the synthetic anonymous principal
// and the everyone group, plus the certified-user feature switch.
type PlatformConfig struct {
	RootNodeID                 int64 `yaml:"root_node_id"`
	TrashNodeID                int64 `yaml:"trash_node_id"`
	AnonymousPrincipalID       int64 `yaml:"anonymous_principal_id"`
	PublicGroupID              int64 `yaml:"public_group_id"`
	DisableCertifiedUserChecks bool  `yaml:"disable_certified_user_checks"`
}

func ParsePlatformYAML(b []byte) (PlatformConfig, error) {
	var cfg PlatformConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return PlatformConfig{}, err
	}
	if cfg.RootNodeID == 0 || cfg.TrashNodeID == 0 {
		return PlatformConfig{}, errors.New("platform: root_node_id and trash_node_id required")
	}
	if cfg.AnonymousPrincipalID == 0 || cfg.PublicGroupID == 0 {
		return PlatformConfig{}, errors.New("platform: anonymous_principal_id and public_group_id required")
	}
	return cfg, nil
}

func LoadPlatformConfig(path string) (PlatformConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PlatformConfig{}, err
	}
	return ParsePlatformYAML(b)
}

func (c PlatformConfig) Policy() services.PlatformPolicy {
	return services.PlatformPolicy{
		TrashNodeID:                c.TrashNodeID,
		AnonymousPrincipalID:       c.AnonymousPrincipalID,
		PublicGroupID:              c.PublicGroupID,
		DisableCertifiedUserChecks: c.DisableCertifiedUserChecks,
	}
}

func defaultPlatformConfigPath() (string, error) {
	path := "config/platform.yaml"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: platform config not found")
}
