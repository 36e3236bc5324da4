package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default returns a Config with usable local defaults and no networks.
func Default() Config {
	return Config{
		ListenAddr: ":8787",
		LogLevel:   "info",
		DataDir:    "data",
		Networks:   map[string]Network{},
	}
}

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low -> high):
//  1. defaults (Default())
//  2. file (YAML) at path, skipped when path is empty
//  3. env vars with prefix VEBRIBE_ (e.g. VEBRIBE_LISTEN_ADDR)
//
// The result is validated before being returned.
func Load(path string) (Config, error) {
	cfg := Default()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("VEBRIBE_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}

	envProvider := env.Provider("VEBRIBE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "vebribe_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, err
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, err
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
