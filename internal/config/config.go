// Package config loads sceneweaver.yaml.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the file looked up in the working directory.
const DefaultPath = "sceneweaver.yaml"

// CurrentVersion is the only accepted config file version.
const CurrentVersion = 1

// Environment overrides.
const (
	EnvToken    = "SCENEWEAVER_TOKEN"
	EnvStoreURL = "SCENEWEAVER_STORE_URL"
)

type Config struct {
	Version int           `mapstructure:"version"`
	Store   StoreConfig   `mapstructure:"store"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	Drafts  DraftsConfig  `mapstructure:"drafts"`
	Library LibraryConfig `mapstructure:"library"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
}

type StoreConfig struct {
	// Backend selects where scenarios live: "remote" or "library".
	Backend string        `mapstructure:"backend"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	UserID string `mapstructure:"user_id"`
	Token  string `mapstructure:"token"`
}

type LayoutConfig struct {
	NodeWidth  float64 `mapstructure:"node_width"`
	NodeHeight float64 `mapstructure:"node_height"`
	NodeSep    float64 `mapstructure:"node_sep"`
	RankSep    float64 `mapstructure:"rank_sep"`
}

type DraftsConfig struct {
	// Backend is "memory", "file" or "redis".
	Backend string      `mapstructure:"backend"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LibraryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Version: CurrentVersion,
		Store: StoreConfig{
			Backend: "library",
			BaseURL: "http://localhost:8000/api",
			Timeout: 10 * time.Second,
		},
		Layout: LayoutConfig{
			NodeWidth:  320,
			NodeHeight: 250,
			NodeSep:    50,
			RankSep:    50,
		},
		Drafts: DraftsConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "sceneweaver:draft:"},
		},
		Library: LibraryConfig{DSN: "sceneweaver.db"},
		Server:  ServerConfig{Port: 8080},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path (YAML, or JSON by extension), layered
// over Default, then applies environment overrides. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw := map[string]any{}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = json.Unmarshal(data, &raw)
		} else {
			err = yaml.Unmarshal(data, &raw)
		}
		if err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return cfg, fmt.Errorf("unsupported config version %d (want %d)", cfg.Version, CurrentVersion)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(raw map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			secondsToDuration,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// secondsToDuration lets plain numbers stand for seconds.
func secondsToDuration(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv(EnvStoreURL); v != "" {
		cfg.Store.BaseURL = v
	}
}
