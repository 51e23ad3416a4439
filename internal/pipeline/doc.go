// Package pipeline chains further transformation and plotting modules.
//
// A Pipeline is the selection a user builds from the registry's lists. It
// applies the registry's selectability rule on every Add, so a module that
// is not repeatable appears at most once.
package pipeline
