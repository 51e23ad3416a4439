// Package watch reloads modules when their files change on disk.
package watch
