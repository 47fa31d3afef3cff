package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	ListenAddr string               `json:"listen_addr" yaml:"listen_addr"`
	Database   DatabaseConfig       `json:"database" yaml:"database"`
	Auth       AuthConfig           `json:"auth" yaml:"auth"`
	Security   SecurityConfig       `json:"security" yaml:"security"`
	Probe      ProbeConfig          `json:"probe" yaml:"probe"`
	Scans      ScanConfig           `json:"scans" yaml:"scans"`
	Observer   ObservabilityConfig  `json:"observability" yaml:"observability"`
	Limits     UserQuickLimitConfig `json:"limits" yaml:"limits"`
}

type DatabaseConfig struct {
	DSN            string `json:"dsn" yaml:"dsn"`
	MaxConns       int32  `json:"max_conns" yaml:"max_conns"`
	MigrationsPath string `json:"migrations_path" yaml:"migrations_path"`
}

type AuthConfig struct {
	SessionTTL string `json:"session_ttl" yaml:"session_ttl"`
	CookieName string `json:"cookie_name" yaml:"cookie_name"`
}

type SecurityConfig struct {
	AdminToken string `json:"admin_token" yaml:"admin_token"`
}

type ProbeConfig struct {
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec"`
	UserAgent  string `json:"user_agent" yaml:"user_agent"`
}

type ScanConfig struct {
	DefaultTimeoutSec int `json:"default_timeout_sec" yaml:"default_timeout_sec"`
	MaxParallelScans  int `json:"max_parallel_scans" yaml:"max_parallel_scans"`
}

type ObservabilityConfig struct {
	OTLPEndpoint string  `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	ServiceName  string  `json:"service_name" yaml:"service_name"`
	SampleRatio  float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

type UserQuickLimitConfig struct {
	QuickScanRPM int `json:"quick_scan_rpm" yaml:"quick_scan_rpm"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: ":8080",
		Database: DatabaseConfig{
			MaxConns:       10,
			MigrationsPath: "./migrations",
		},
		Auth: AuthConfig{
			SessionTTL: "8h",
			CookieName: "gqlcheck_session",
		},
		Probe: ProbeConfig{
			TimeoutSec: 30,
			UserAgent:  "gqlcheck",
		},
		Scans: ScanConfig{
			DefaultTimeoutSec: 120,
			MaxParallelScans:  4,
		},
		Observer: ObservabilityConfig{
			ServiceName: "gqlcheck-api",
			SampleRatio: 1,
		},
		Limits: UserQuickLimitConfig{
			QuickScanRPM: 6,
		},
	}
}

func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json config: %w", err)
		}
	default:
		var yamlErr error
		if yamlErr = yaml.Unmarshal(data, &cfg); yamlErr == nil {
			break
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.New("config format not recognized (expected yaml/json)")
		}
	}
	normalizeConfig(&cfg)
	return cfg, nil
}

func normalizeConfig(cfg *ServerConfig) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if strings.TrimSpace(cfg.Database.MigrationsPath) == "" {
		cfg.Database.MigrationsPath = "./migrations"
	}
	if strings.TrimSpace(cfg.Auth.CookieName) == "" {
		cfg.Auth.CookieName = "gqlcheck_session"
	}
	if strings.TrimSpace(cfg.Auth.SessionTTL) == "" {
		cfg.Auth.SessionTTL = "8h"
	}
	if cfg.Probe.TimeoutSec <= 0 {
		cfg.Probe.TimeoutSec = 30
	}
	if strings.TrimSpace(cfg.Probe.UserAgent) == "" {
		cfg.Probe.UserAgent = "gqlcheck"
	}
	if cfg.Scans.DefaultTimeoutSec <= 0 {
		cfg.Scans.DefaultTimeoutSec = 120
	}
	if cfg.Scans.MaxParallelScans <= 0 {
		cfg.Scans.MaxParallelScans = 4
	}
	if cfg.Observer.SampleRatio <= 0 || cfg.Observer.SampleRatio > 1 {
		cfg.Observer.SampleRatio = 1
	}
	if strings.TrimSpace(cfg.Observer.ServiceName) == "" {
		cfg.Observer.ServiceName = "gqlcheck-api"
	}
	if cfg.Limits.QuickScanRPM <= 0 {
		cfg.Limits.QuickScanRPM = 6
	}
}
