// Package loader installs the module files found under a directory.
//
// LoadAll scans the directory with a doublestar pattern and compiles the
// files on a bounded pool of workers. Each file is fingerprinted with
// blake3; a later pass skips files whose content has not changed, replaces
// modules whose file changed, and uninstalls modules whose file is gone.
// Reload and Forget do the same for a single path and are what the watcher
// calls.
package loader
