// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags and the optional YAML config file into the
// application's internal configuration and exposes the treeplug commands.
package cli
