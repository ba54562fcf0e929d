package utils

import (
	"github.com/Luismorlan/socialmux/utils/flag"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// StartTracer starts the Datadog tracer. Call once from main.
func StartTracer() {
	env := "development"
	if IsProdEnv() {
		env = "production"
	}

	tracer.Start(
		tracer.WithService(flag.ServiceName),
		tracer.WithEnv(env),
	)
}

// Stop tracer, OK to be closed multiple times
func CloseTracer() {
	tracer.Stop()
}
