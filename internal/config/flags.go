package config

import "flag"

var (
	flagConfig  = flag.String("config", "", "Path to config file")
	flagDebug   = flag.Bool("debug", false, "Enable debug logging")
	flagData    = flag.String("data", "", "Data directory to search for models")
	flagArchive = flag.String("bsa", "", "BSA archive to search for models")
	flagHidden  = flag.Bool("hidden", false, "Include hidden nodes and editor markers")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagData != "" {
		cfg.Data.Dirs = append(cfg.Data.Dirs, *flagData)
	}
	if *flagArchive != "" {
		cfg.Data.Archives = append(cfg.Data.Archives, *flagArchive)
	}
	if *flagHidden {
		cfg.Model.IncludeHidden = true
		cfg.Model.IncludeEditorMarker = true
	}
}
