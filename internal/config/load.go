package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads and returns the validated typed configuration from a fresh
// viper instance, using the same search order as Init. A missing file
// yields the defaults.
func Load() (*Config, error) {
	v := viper.New()
	configure(v)
	setViperDefaults(v)
	for _, p := range searchPaths() {
		v.AddConfigPath(p)
	}

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config; %w", err)
		}
	}

	return unmarshalConfig(v)
}

// LoadFromPath reads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	configure(v)
	v.SetConfigFile(expandHome(path))
	setViperDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}

	return unmarshalConfig(v)
}

// Current validates the global configuration loaded by Init.
func Current() (*Config, error) {
	cfg := Get()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// unmarshalConfig converts viper config to typed Config struct.
func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
