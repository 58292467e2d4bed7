// Package telemetry wires opt-in OpenTelemetry tracing. The fetch client
// records one span per logical request, with an event per attempt, on the
// provider returned by Setup.
package telemetry
