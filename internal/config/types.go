package config

// Config is the root configuration structure for the application.
type Config struct {
	LogLevel string        `yaml:"log_level" mapstructure:"log_level"`
	LogFile  string        `yaml:"log_file" mapstructure:"log_file"`
	STEP     STEPConfig    `yaml:"step" mapstructure:"step"`
	IGES     IGESConfig    `yaml:"iges" mapstructure:"iges"`
	STL      STLConfig     `yaml:"stl" mapstructure:"stl"`
	Convert  ConvertConfig `yaml:"convert" mapstructure:"convert"`
	Watch    WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// STEPConfig holds STEP export settings.
type STEPConfig struct {
	Schema    string  `yaml:"schema" mapstructure:"schema"`
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`
	Verbose   bool    `yaml:"verbose" mapstructure:"verbose"`
}

// IGESConfig holds IGES export settings.
type IGESConfig struct {
	Version string `yaml:"version" mapstructure:"version"`
}

// STLConfig holds STL export settings.
type STLConfig struct {
	ASCII bool `yaml:"ascii" mapstructure:"ascii"`
}

// ConvertConfig holds batch conversion settings.
type ConvertConfig struct {
	Jobs int `yaml:"jobs" mapstructure:"jobs"`
}

// WatchConfig holds the directory watch service settings.
type WatchConfig struct {
	Include    []string `yaml:"include" mapstructure:"include"`
	DebounceMs int      `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	RateLimit  float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // conversions per second
	Burst      int      `yaml:"burst" mapstructure:"burst"`
	LedgerPath string   `yaml:"ledger_path" mapstructure:"ledger_path"`
}
