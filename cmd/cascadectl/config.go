package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values read as "90s" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the cascadectl YAML file: which backends to stand up and which
// logical keys are bound to which tables.
type Config struct {
	StorageRoot string   `yaml:"storage_root"`
	Prefix      string   `yaml:"prefix"`
	DefaultTTL  Duration `yaml:"default_ttl"`
	Format      string   `yaml:"format"`   // json (default), msgpack or cbor
	Provider    string   `yaml:"provider"` // memory (default) or redis

	Redis RedisConfig `yaml:"redis"`

	// Database is an SQLite file; setting it enables the relational layer
	// for every configured key.
	Database string `yaml:"database"`

	Isolate     bool   `yaml:"isolate"`
	DisableTags bool   `yaml:"disable_tags"`
	TagName     string `yaml:"tag_name"`

	LogReads  bool `yaml:"log_reads"`
	LogWrites bool `yaml:"log_writes"`

	Keys map[string]KeyConfig `yaml:"keys"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// KeyConfig binds one logical key to its table.
type KeyConfig struct {
	Table         string   `yaml:"table"`
	Columns       []string `yaml:"columns"`
	IDColumn      string   `yaml:"id_column"`
	OrderBy       string   `yaml:"order_by"`
	SoftDelete    bool     `yaml:"soft_delete"`
	DeletedColumn string   `yaml:"deleted_column"`
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(b, path)
}

func ParseConfig(b []byte, path string) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StorageRoot == "" {
		return fmt.Errorf("storage_root is required")
	}
	switch c.Format {
	case "", "json", "msgpack", "cbor":
	default:
		return fmt.Errorf("unknown format %q (want json, msgpack or cbor)", c.Format)
	}
	switch c.Provider {
	case "", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis provider needs redis.addr")
		}
	default:
		return fmt.Errorf("unknown provider %q (want memory or redis)", c.Provider)
	}
	if len(c.Keys) > 0 && c.Database == "" {
		return fmt.Errorf("keys are bound but no database is set")
	}
	for key, kc := range c.Keys {
		if kc.Table == "" {
			return fmt.Errorf("key %q: table is required", key)
		}
		if len(kc.Columns) == 0 {
			return fmt.Errorf("key %q: columns are required", key)
		}
	}
	return nil
}

// ext returns the file extension matching the configured format, so files on
// disk stay openable with the obvious tool.
func (c *Config) ext() string {
	switch c.Format {
	case "msgpack":
		return ".msgpack"
	case "cbor":
		return ".cbor"
	default:
		return ".json"
	}
}
