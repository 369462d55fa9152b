// Package config provides the YAML server configuration: listen address,
// broadcast queue sizing, lobby housekeeping and persistence paths.
package config

import "time"

// ServerConfig is the full server configuration.
type ServerConfig struct {
	// ListenAddr is the websocket listen address (host:port). The
	// ARCADE_LISTEN_ADDR environment variable overrides it.
	ListenAddr string `yaml:"listen_addr"`

	// QueueSize bounds each client's outbound message queue.
	QueueSize int `yaml:"queue_size"`

	// LobbyIdleTimeoutMinutes closes never-started lobbies idle longer
	// than this. Zero disables the sweep.
	LobbyIdleTimeoutMinutes int `yaml:"lobby_idle_timeout_minutes"`

	// LobbySweepSeconds is how often the idle sweep runs.
	LobbySweepSeconds int `yaml:"lobby_sweep_seconds"`

	// DBPath locates the SQLite match database. Empty disables
	// persistence.
	DBPath string `yaml:"db_path"`
}

// LobbyIdleTimeout returns the idle timeout as a duration.
func (c ServerConfig) LobbyIdleTimeout() time.Duration {
	return time.Duration(c.LobbyIdleTimeoutMinutes) * time.Minute
}

// LobbySweepPeriod returns the sweep interval as a duration.
func (c ServerConfig) LobbySweepPeriod() time.Duration {
	return time.Duration(c.LobbySweepSeconds) * time.Second
}
