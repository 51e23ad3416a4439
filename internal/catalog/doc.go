// Package catalog ties the compiler to the registry.
//
// Installing a module is compile, describe, register. The Installer runs the
// three steps in that order and stops at the first failure, so the registry
// only ever sees modules that compiled completely.
package catalog
