package config

import (
	"github.com/spf13/viper"
)

// Runtime profiling exposed under /debug/pprof
type Profiler struct {
	// Are profiling endpoints registered
	Enabled bool

	// Passed to runtime.SetBlockProfileRate
	BlockProfileRate int

	// Passed to runtime.SetMutexProfileFraction
	MutexProfileFraction int
}

func setProfilerDefaults(v *viper.Viper) {
	v.SetDefault("Profiler.Enabled", "false")
	v.SetDefault("Profiler.BlockProfileRate", "50")
	v.SetDefault("Profiler.MutexProfileFraction", "10")
}
