package cmd

import (
	_ "embed" // Required for go:embed
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/EngDotorDaSilva/doafacil-sub000/realtimeservice/config"
)

//go:embed prod/config.yaml
var configFile []byte

// Load parses the embedded configuration file and applies environment
// overrides. The signing secret is never read from the YAML file.
func Load() (*config.AppConfig, error) {
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedded yaml config: %w", err)
	}

	appCfg, err := config.NewConfigFromYaml(&yamlCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build configuration from YAML: %w", err)
	}

	appCfg.AuthSecret = os.Getenv("AUTH_SECRET")
	if appCfg.RunMode == "local" && appCfg.AuthSecret == "" {
		appCfg.AuthSecret = "local-dev-secret"
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		appCfg.PresenceMirror.Redis.Addr = addr
	}

	return appCfg, nil
}

// LoadLocal loads the embedded configuration forced into local mode, with a
// development signing secret when none is set. Never use in production.
func LoadLocal() (*config.AppConfig, error) {
	appCfg, err := Load()
	if err != nil {
		return nil, err
	}
	appCfg.RunMode = "local"
	appCfg.PresenceMirror.Type = "none"
	appCfg.AllowedOrigins = nil
	if appCfg.AuthSecret == "" {
		appCfg.AuthSecret = "local-dev-secret"
	}
	return appCfg, nil
}
