package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagStrict    = flag.Bool("strict", false, "Treat validation findings as fatal")
	flagTolerant  = flag.Bool("tolerant", false, "Keep malformed blocks as raw payloads")
	flagThreshold = flag.Int("leaf-threshold", 0, "Max triangles per OBB leaf")
	flagWorkers   = flag.Int("workers", 0, "Concurrent files in batch mode")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagStrict {
		cfg.Validate.Strict = true
	}
	if *flagTolerant {
		cfg.Validate.Tolerant = true
	}
	if *flagThreshold > 0 {
		cfg.OBB.LeafThreshold = *flagThreshold
	}
	if *flagWorkers > 0 {
		cfg.Batch.Workers = *flagWorkers
	}
}
