package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the config file layout, shared by YAML and TOML. Absent keys
// leave the current value untouched.
type fileConfig struct {
	Relay *struct {
		Addr            *string `yaml:"addr" toml:"addr"`
		ReadTimeout     *string `yaml:"read_timeout" toml:"read_timeout"`
		MaxRequestBytes *int    `yaml:"max_request_bytes" toml:"max_request_bytes"`
		Echo            *bool   `yaml:"echo" toml:"echo"`
	} `yaml:"relay" toml:"relay"`
	HTTP *struct {
		Addr               *string  `yaml:"addr" toml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	} `yaml:"http" toml:"http"`
	Log *struct {
		Level  *string `yaml:"level" toml:"level"`
		Format *string `yaml:"format" toml:"format"`
	} `yaml:"log" toml:"log"`
	RateLimit *struct {
		RPS   *float64 `yaml:"rps" toml:"rps"`
		Burst *int     `yaml:"burst" toml:"burst"`
	} `yaml:"rate_limit" toml:"rate_limit"`
	History *struct {
		DBPath        *string `yaml:"db_path" toml:"db_path"`
		Retention     *string `yaml:"retention" toml:"retention"`
		PruneSchedule *string `yaml:"prune_schedule" toml:"prune_schedule"`
	} `yaml:"history" toml:"history"`
	Auth *struct {
		IssuerURL *string `yaml:"issuer_url" toml:"issuer_url"`
		JWTSecret *string `yaml:"jwt_secret" toml:"jwt_secret"`
		Audience  *string `yaml:"audience" toml:"audience"`
	} `yaml:"auth" toml:"auth"`
}

// LoadFile returns the defaults overlaid with the config file at path.
// Files ending in .toml are read as TOML, anything else as YAML.
// Environment variables are not consulted.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.NewDecoder(f).Decode(&fc)
		if err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse config file %s: unknown key %q", path, undecoded[0].String())
		}
		return c.overlay(&fc)
	}

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return c.overlay(&fc)
}

func (c *Config) overlay(fc *fileConfig) error {
	if r := fc.Relay; r != nil {
		setPtr(&c.RelayAddr, r.Addr)
		setPtr(&c.RelayMaxRequestBytes, r.MaxRequestBytes)
		setPtr(&c.RelayEcho, r.Echo)
		if err := setDuration(&c.RelayReadTimeout, r.ReadTimeout, "relay.read_timeout"); err != nil {
			return err
		}
	}
	if h := fc.HTTP; h != nil {
		setPtr(&c.HTTPAddr, h.Addr)
		if len(h.CORSAllowedOrigins) > 0 {
			c.CORSAllowedOrigins = compactNonEmpty(h.CORSAllowedOrigins)
		}
	}
	if l := fc.Log; l != nil {
		setPtr(&c.LogLevel, l.Level)
		setPtr(&c.LogFormat, l.Format)
	}
	if rl := fc.RateLimit; rl != nil {
		setPtr(&c.RateLimitRPS, rl.RPS)
		setPtr(&c.RateLimitBurst, rl.Burst)
	}
	if h := fc.History; h != nil {
		setPtr(&c.HistoryDBPath, h.DBPath)
		setPtr(&c.HistoryPruneSchedule, h.PruneSchedule)
		if err := setDuration(&c.HistoryRetention, h.Retention, "history.retention"); err != nil {
			return err
		}
	}
	if a := fc.Auth; a != nil {
		setPtr(&c.Auth.IssuerURL, a.IssuerURL)
		setPtr(&c.Auth.JWTSecret, a.JWTSecret)
		setPtr(&c.Auth.Audience, a.Audience)
	}
	return nil
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
