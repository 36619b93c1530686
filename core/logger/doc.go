// Package logger is the structured application log shared by the CLI, the
// SSH server and the engine.
package logger
