// Package otel exports engine metrics through OpenTelemetry observable
// instruments.
package otel
