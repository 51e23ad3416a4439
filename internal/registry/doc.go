// Package registry holds the catalog of installed modules.
//
// The Registry maps module ids to descriptors. Ids are unique across the
// whole catalog, not per kind. Readers get ordered snapshots partitioned by
// kind (ListByKind) and narrowed by a case-insensitive substring (Filter);
// these are the lists the presentation layer shows.
//
// Repeatability is a usage rule, not a catalog rule: a non-repeatable module
// stays listed after it has been chosen once, and CanSelect tells a client
// whether it may be added to the selection the client is holding.
package registry
