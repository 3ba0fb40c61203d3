// Package zap provides the zap-backed implementation of the log.Logger
// interface, including environment-profile construction, console/file
// output selection, OpenTelemetry log bridging, and control-character
// sanitation of string fields.
package zap
