// Package catalogsync publishes the module catalog to a presentation process.
//
// The registry stays the single source of truth. The Publisher subscribes to
// it and emits a Summary for every module registered or removed, over
// socket.io when Dial is used.
package catalogsync
