package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagQuadSize    = flag.Int("quad-size", 0, "Vertices per quad edge")
	flagWorkers     = flag.Int("workers", 0, "Mesh generation workers")
	flagMetricsAddr = flag.String("metrics-addr", "", "Admin endpoint address, e.g. :9090")
	flagTicks       = flag.Int("ticks", -1, "Number of simulation ticks")
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
	if *flagQuadSize > 0 {
		cfg.Planet.QuadSize = *flagQuadSize
	}
	if *flagWorkers > 0 {
		cfg.Generation.Workers = *flagWorkers
	}
	if *flagMetricsAddr != "" {
		cfg.Metrics.Addr = *flagMetricsAddr
	}
	if *flagTicks >= 0 {
		cfg.Sim.Ticks = *flagTicks
	}
}
