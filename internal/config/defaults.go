package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/aocx/aocx.log"

	DefaultSTEPSchema    = "AP214CD"
	DefaultSTEPTolerance = 1e-4
	DefaultIGESVersion   = "5.1"
	DefaultConvertJobs   = 4

	DefaultWatchDebounceMs = 500
	DefaultWatchRateLimit  = 4.0
	DefaultWatchBurst      = 2
	DefaultWatchLedgerPath = "~/.config/aocx/watch.db"
)

// DefaultWatchInclude matches every extension the exchange layer handles.
var DefaultWatchInclude = []string{"**/*.{step,stp,iges,igs,stl,brep}"}

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		STEP: STEPConfig{
			Schema:    DefaultSTEPSchema,
			Tolerance: DefaultSTEPTolerance,
		},
		IGES:    IGESConfig{Version: DefaultIGESVersion},
		Convert: ConvertConfig{Jobs: DefaultConvertJobs},
		Watch: WatchConfig{
			Include:    append([]string(nil), DefaultWatchInclude...),
			DebounceMs: DefaultWatchDebounceMs,
			RateLimit:  DefaultWatchRateLimit,
			Burst:      DefaultWatchBurst,
			LedgerPath: DefaultWatchLedgerPath,
		},
	}
}

// setDefaults registers all default configuration values with viper.
// Called during Init() before reading config files.
func setDefaults() {
	setViperDefaults(viper.GetViper())
}

// setViperDefaults registers all default configuration values with a viper instance.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", DefaultLogFile)

	v.SetDefault("step.schema", DefaultSTEPSchema)
	v.SetDefault("step.tolerance", DefaultSTEPTolerance)
	v.SetDefault("step.verbose", false)
	v.SetDefault("iges.version", DefaultIGESVersion)
	v.SetDefault("stl.ascii", false)
	v.SetDefault("convert.jobs", DefaultConvertJobs)

	v.SetDefault("watch.include", DefaultWatchInclude)
	v.SetDefault("watch.debounce_ms", DefaultWatchDebounceMs)
	v.SetDefault("watch.rate_limit", DefaultWatchRateLimit)
	v.SetDefault("watch.burst", DefaultWatchBurst)
	v.SetDefault("watch.ledger_path", DefaultWatchLedgerPath)
}
