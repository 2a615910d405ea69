// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package model

import (
	"log/slog"
	"time"
)

const SqliteDatastore = "sqlite"

type ServerConfig struct {
	Hostname string
	Port     int
	TLSCert  string
	TLSKey   string
}

type DatastoreConfig struct {
	DatastoreType string
	Sqlite        SqliteConfig
}

type SqliteConfig struct {
	FilePath string
}

// ProxyConfig locates the HTTP proxy service that performs outbound calls on
// behalf of the fetch orchestrator.
type ProxyConfig struct {
	URL     string
	Port    int
	Timeout time.Duration
}

type LoggingConfig struct {
	FilePath        string
	FileLogLevel    slog.Level
	ConsoleLogLevel slog.Level
}

type OTLPConfig struct {
	Enabled  bool
	Endpoint string
	Protocol string
	Insecure bool
}

type PrometheusConfig struct {
	Enabled bool
}

type OTelConfig struct {
	Enabled     bool
	ServiceName string
	OTLP        OTLPConfig
	Prometheus  PrometheusConfig
}

type AgentConfig struct {
	Server    ServerConfig
	Datastore DatastoreConfig
	Proxy     ProxyConfig
	Logging   LoggingConfig
	OTel      OTelConfig
}

type APIConfig struct {
	URL  string
	Port int
}

type CliConfig struct {
	API APIConfig
}

type Config struct {
	Agent AgentConfig
	Cli   CliConfig
}

// DefaultConfig returns the configuration used when no config file overrides
// are present.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		Agent: AgentConfig{
			Server: ServerConfig{
				Hostname: "localhost",
				Port:     8471,
			},
			Datastore: DatastoreConfig{
				DatastoreType: SqliteDatastore,
				Sqlite: SqliteConfig{
					FilePath: dataDir + "/stencil.db",
				},
			},
			Proxy: ProxyConfig{
				URL:     "http://localhost",
				Port:    8472,
				Timeout: 30 * time.Second,
			},
			Logging: LoggingConfig{
				FilePath:        dataDir + "/log/agent.log",
				FileLogLevel:    slog.LevelDebug,
				ConsoleLogLevel: slog.LevelInfo,
			},
			OTel: OTelConfig{
				ServiceName: "stencil-agent",
				OTLP: OTLPConfig{
					Protocol: "grpc",
				},
				Prometheus: PrometheusConfig{
					Enabled: true,
				},
			},
		},
		Cli: CliConfig{
			API: APIConfig{
				URL:  "http://localhost",
				Port: 8471,
			},
		},
	}
}
