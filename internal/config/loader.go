package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the server configuration.
// Search order: customPath -> ./configs/server.yaml -> built-in defaults.
// The ARCADE_LISTEN_ADDR environment variable overrides the listen
// address from any source.
func Load(customPath string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
	} else if data, err := os.ReadFile("configs/server.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse configs/server.yaml: %w", err)
		}
	}

	if addr := os.Getenv("ARCADE_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultServerConfig().QueueSize
	}
	if cfg.LobbySweepSeconds < 1 {
		cfg.LobbySweepSeconds = DefaultServerConfig().LobbySweepSeconds
	}

	return cfg, nil
}
