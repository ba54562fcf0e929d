package utils

import (
	Logger "github.com/Luismorlan/socialmux/utils/log"

	"github.com/Luismorlan/socialmux/utils/flag"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// StartProfiler starts the Datadog profiler. Call once from main.
func StartProfiler() {
	env := "development"
	if IsProdEnv() {
		env = "production"
	}

	if err := profiler.Start(
		profiler.WithService(flag.ServiceName),
		profiler.WithEnv(env),
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
			// The profiles below are disabled by
			// default to keep overhead low, but
			// can be enabled as needed.
			// profiler.BlockProfile,
			// profiler.MutexProfile,
			// profiler.GoroutineProfile,
		),
	); err != nil {
		Logger.Log.Fatal(err)
	}
}

// Stop profiler, OK to be closed multiple times
func CloseProfiler() {
	profiler.Stop()
}
