// Package app contains the core application logic. It wires the compiler,
// the library catalog, the registry and the loader together, and defines the
// serve lifecycle, decoupled from any specific entrypoint like a CLI.
package app
